package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string     backend gRPC address ("" disables the liveness probe)
//	-i int        online check interval in seconds
//	-s string     session storage file
//	-d string     TOML user directory seed
//	-dsn string   Postgres directory DSN (overrides -d)
//	-t duration   session timeout
//	-w duration   warning margin
//	-m string     metrics listen address
//	-log string   log level
//
// Only the flags above are parsed; anything else in args is ignored.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-i", "-s", "-d", "-dsn", "-t", "-w", "-m", "-log"})

	fs := flag.NewFlagSet("sessionkeeper", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.StoragePath, "s", cfg.StoragePath, "session storage file")
	fs.StringVar(&cfg.DirectoryFile, "d", cfg.DirectoryFile, "user directory seed (TOML)")
	fs.StringVar(&cfg.DirectoryDSN, "dsn", cfg.DirectoryDSN, "postgres user directory DSN")
	fs.DurationVar(&cfg.SessionTimeout, "t", cfg.SessionTimeout, "session timeout")
	fs.DurationVar(&cfg.WarningMargin, "w", cfg.WarningMargin, "warning margin")
	fs.StringVar(&cfg.MetricsAddr, "m", cfg.MetricsAddr, "metrics listen address")
	fs.StringVar(&cfg.LogLevel, "log", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "i" {
			cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
		}
	})
	return nil
}
