package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/flagx"
	"github.com/joho/godotenv"
)

const envPrefix = "SK_"

const defaultEnvFile = ".env"

type lookupFunc func(key string) (string, bool)

var osLookup lookupFunc = os.LookupEnv

// parseEnv overlays cfg with SK_* variables. The dotenv file named by -env
// (or ./.env when present) is read first; lookup wins over the file.
func parseEnv(cfg *Config, args []string, lookup lookupFunc) error {
	file := flagx.EnvFileFlag(args)
	explicit := file != ""
	if !explicit {
		file = defaultEnvFile
	}

	fileVars, err := godotenv.Read(file)
	if err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read env file %s: %w", file, err)
		}
		fileVars = map[string]string{}
	}

	get := func(name string) (string, bool) {
		if v, ok := lookup(envPrefix + name); ok {
			return v, true
		}
		v, ok := fileVars[envPrefix+name]
		return v, ok
	}

	strs := map[string]*string{
		"SERVER_ADDR":    &cfg.ServerEndpointAddr,
		"HEALTH_SERVICE": &cfg.HealthService,
		"STORAGE_PATH":   &cfg.StoragePath,
		"DIRECTORY_FILE": &cfg.DirectoryFile,
		"DIRECTORY_DSN":  &cfg.DirectoryDSN,
		"TOKEN_SECRET":   &cfg.TokenSecret,
		"TRACKED_EVENTS": &cfg.TrackedEvents,
		"LOGIN_PATH":     &cfg.LoginPath,
		"RETURN_PARAM":   &cfg.ReturnParam,
		"LOG_LEVEL":      &cfg.LogLevel,
		"LOG_FORMAT":     &cfg.LogFormat,
		"LOG_FILE":       &cfg.LogFile,
		"METRICS_ADDR":   &cfg.MetricsAddr,
		"S3_BUCKET":      &cfg.S3Bucket,
		"S3_REGION":      &cfg.S3Region,
		"S3_ENDPOINT":    &cfg.S3Endpoint,
		"S3_ACCESS_KEY":  &cfg.S3AccessKey,
		"S3_SECRET_KEY":  &cfg.S3SecretKey,
		"S3_PREFIX":      &cfg.S3Prefix,
	}
	for name, dst := range strs {
		if v, ok := get(name); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"ONLINE_CHECK_INTERVAL": &cfg.OnlineCheckInterval,
		"SESSION_TIMEOUT":       &cfg.SessionTimeout,
		"WARNING_MARGIN":        &cfg.WarningMargin,
		"LOGIN_REFILL":          &cfg.LoginRefill,
	}
	for name, dst := range durations {
		v, ok := get(name)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = d
	}

	if v, ok := get("LOGIN_BURST"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sLOGIN_BURST: %w", envPrefix, err)
		}
		cfg.LoginBurst = n
	}

	return nil
}
