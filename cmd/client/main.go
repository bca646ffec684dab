package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/dmitrijs2005/sessionkeeper/internal/audit"
	"github.com/dmitrijs2005/sessionkeeper/internal/auth"
	"github.com/dmitrijs2005/sessionkeeper/internal/buildinfo"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/cli"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/config"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/health"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/storage"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/directory"
	"github.com/dmitrijs2005/sessionkeeper/internal/filex"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/dmitrijs2005/sessionkeeper/internal/metrics"
	"github.com/dmitrijs2005/sessionkeeper/internal/session"
)

const tokenIssuer = "sessionkeeper"

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("%v", err)
	}

}

func run(args []string) error {
	cfg, err := config.LoadConfig(args)
	if err != nil {
		return err
	}

	logOut, closeLog, err := openLog(cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()
	logger := logging.New(logOut, cfg.LogFormat, cfg.LogLevel)

	// Interrupts kill the process like a crashed tab; only exit/quit and end
	// of input count as closing it.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sc, err := cfg.Session()
	if err != nil {
		return err
	}

	if err := filex.EnsureParentDir(cfg.StoragePath); err != nil {
		return err
	}
	db, err := storage.Open(ctx, cfg.StoragePath)
	if err != nil {
		return err
	}
	defer db.Close()
	kv := storage.NewSQLiteRepository(db)

	dir, closeDir, err := openDirectory(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDir()

	secret := []byte(cfg.TokenSecret)
	if len(secret) == 0 {
		logger.Warn(ctx, "no token secret configured, using a random one for this run")
		secret = common.GenerateRandByteArray(32)
	}
	tokens, err := auth.NewTokenMinter(secret, tokenIssuer, sc.SessionTimeout, nil)
	if err != nil {
		return err
	}

	screen := cli.NewScreen(os.Stdout, sc.LoginPath)
	bus := session.NewEventBus()

	mgr, err := session.NewManager(session.Options{
		Config:    sc,
		Logger:    logger,
		Directory: dir,
		Tokens:    tokens,
		Persister: session.NewStoragePersister(kv),
		Activity:  bus,
		Navigator: screen,
	})
	if err != nil {
		return err
	}

	journal := audit.NewJournal(db, logger)
	mgr.AddListener(journal)

	reg, m := metrics.NewRegistry()
	mgr.AddListener(m)
	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, reg, logger); err != nil {
				logger.Error(ctx, "metrics server stopped", "error", err)
			}
		}()
	}

	mgr.Restore(ctx)

	var exporter cli.AuditExporter
	if s3cfg, ok := cfg.S3(); ok {
		client, err := audit.NewS3Client(ctx, s3cfg)
		if err != nil {
			return err
		}
		exporter = audit.NewExporter(journal, client, s3cfg.Bucket, s3cfg.Prefix)
	}

	watcher, closeWatcher, err := startWatcher(ctx, cfg, mgr, logger)
	if err != nil {
		return err
	}
	defer closeWatcher()

	app := cli.NewApp(cli.Options{
		Session:  mgr,
		Screen:   screen,
		Activity: bus,
		Audit:    exporter,
		Status:   watcher,
		Logger:   logger,
		In:       os.Stdin,
		Out:      os.Stdout,
	})
	app.Run(ctx)

	mgr.Close()
	if exporter != nil {
		if n, key, err := exporter.Export(ctx); err != nil {
			logger.Warn(ctx, "audit export on exit failed", "error", err)
		} else if n > 0 {
			logger.Info(ctx, "audit exported", "events", n, "key", key)
		}
	}
	if err := kv.Clear(ctx); err != nil {
		logger.Warn(ctx, "session storage clear on exit failed", "error", err)
	}

	return nil
}

func openLog(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stderr, func() {}, nil
	}
	if err := filex.EnsureParentDir(path); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func openDirectory(ctx context.Context, cfg *config.Config) (directory.Directory, func(), error) {
	if cfg.DirectoryDSN != "" {
		db, err := directory.OpenPostgres(ctx, cfg.DirectoryDSN)
		if err != nil {
			return nil, nil, err
		}
		return directory.NewPostgres(db), func() { _ = db.Close() }, nil
	}

	mem, err := directory.LoadMemoryFile(cfg.DirectoryFile)
	if err != nil {
		return nil, nil, err
	}
	return mem, func() {}, nil
}

func startWatcher(ctx context.Context, cfg *config.Config, headers health.HeaderSource, logger logging.Logger) (*health.Watcher, func(), error) {
	onChange := func(m health.Mode) {
		fmt.Fprintf(os.Stdout, "\nSwitched to %s mode\n", m)
	}

	if cfg.ServerEndpointAddr == "" {
		return health.NewWatcher(nil, cfg.OnlineCheckInterval, logger, onChange), func() {}, nil
	}

	prober, err := health.Dial(cfg.ServerEndpointAddr, cfg.HealthService, headers)
	if err != nil {
		return nil, nil, err
	}

	w := health.NewWatcher(prober, cfg.OnlineCheckInterval, logger, onChange)
	go w.Run(ctx)

	return w, func() { _ = prober.Close() }, nil
}
