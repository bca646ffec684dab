package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/audit"
	"github.com/dmitrijs2005/sessionkeeper/internal/session"
)

// ErrInvalid reports a setting outside its allowed range.
var ErrInvalid = errors.New("invalid configuration")

// Config holds runtime settings for the shell.
type Config struct {
	// ServerEndpointAddr is the backend gRPC endpoint probed for liveness.
	// Empty disables the probe.
	ServerEndpointAddr  string
	HealthService       string
	OnlineCheckInterval time.Duration

	// StoragePath is the SQLite file backing session storage.
	StoragePath string

	// DirectoryFile is a TOML user seed; DirectoryDSN, when set, selects the
	// Postgres directory instead.
	DirectoryFile string
	DirectoryDSN  string

	// TokenSecret signs session tokens. Empty means a random per-run secret.
	TokenSecret string

	SessionTimeout time.Duration
	WarningMargin  time.Duration
	TrackedEvents  string
	LoginPath      string
	ReturnParam    string
	LoginBurst     int
	LoginRefill    time.Duration

	LogLevel  string
	LogFormat string
	LogFile   string

	MetricsAddr string

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Prefix    string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	sc := session.DefaultConfig()

	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.StoragePath = "session.db"
	c.DirectoryFile = "users.toml"
	c.SessionTimeout = sc.SessionTimeout
	c.WarningMargin = sc.WarningMargin
	c.TrackedEvents = "click,keypress,mousemove,touchstart"
	c.LoginPath = sc.LoginPath
	c.ReturnParam = sc.ReturnParam
	c.LoginBurst = sc.LoginBurst
	c.LoginRefill = sc.LoginRefill
	c.LogLevel = "warn"
	c.LogFormat = "text"
	c.S3Region = "us-east-1"
	c.S3Prefix = "audit"
}

// LoadConfig builds a Config from defaults, dotenv and environment, JSON and
// flags, in that order. args excludes the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseEnv(cfg, args, osLookup); err != nil {
		return nil, err
	}
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the shell needs before it starts.
func (c *Config) Validate() error {
	if c.OnlineCheckInterval <= 0 {
		return fmt.Errorf("%w: online check interval must be positive, got %s", ErrInvalid, c.OnlineCheckInterval)
	}
	if _, err := c.Session(); err != nil {
		return err
	}
	return nil
}

// Session converts the session tunables and validates them.
func (c *Config) Session() (session.Config, error) {
	events, err := session.ParseEventTypes(c.TrackedEvents)
	if err != nil {
		return session.Config{}, err
	}

	sc := session.Config{
		SessionTimeout: c.SessionTimeout,
		WarningMargin:  c.WarningMargin,
		TrackedEvents:  events,
		LoginPath:      c.LoginPath,
		ReturnParam:    c.ReturnParam,
		LoginBurst:     c.LoginBurst,
		LoginRefill:    c.LoginRefill,
	}
	if err := sc.Validate(); err != nil {
		return session.Config{}, fmt.Errorf("session settings: %w", err)
	}
	return sc, nil
}

// S3 returns the audit export target; ok is false when no bucket is set.
func (c *Config) S3() (audit.S3Config, bool) {
	return audit.S3Config{
		Region:    c.S3Region,
		Endpoint:  c.S3Endpoint,
		AccessKey: c.S3AccessKey,
		SecretKey: c.S3SecretKey,
		Bucket:    c.S3Bucket,
		Prefix:    c.S3Prefix,
	}, c.S3Bucket != ""
}
