package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/flagx"
	"github.com/dmitrijs2005/sessionkeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Only fields
// present in the file override earlier values.
type JsonConfig struct {
	ServerEndpointAddr  *string         `json:"server_endpoint_addr"`
	HealthService       *string         `json:"health_service"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
	StoragePath         *string         `json:"storage_path"`
	DirectoryFile       *string         `json:"directory_file"`
	DirectoryDSN        *string         `json:"directory_dsn"`
	TokenSecret         *string         `json:"token_secret"`
	SessionTimeout      *timex.Duration `json:"session_timeout"`
	WarningMargin       *timex.Duration `json:"warning_margin"`
	TrackedEvents       *string         `json:"tracked_events"`
	LoginPath           *string         `json:"login_path"`
	ReturnParam         *string         `json:"return_param"`
	LoginBurst          *int            `json:"login_burst"`
	LoginRefill         *timex.Duration `json:"login_refill"`
	LogLevel            *string         `json:"log_level"`
	LogFormat           *string         `json:"log_format"`
	LogFile             *string         `json:"log_file"`
	MetricsAddr         *string         `json:"metrics_addr"`
	S3Bucket            *string         `json:"s3_bucket"`
	S3Region            *string         `json:"s3_region"`
	S3Endpoint          *string         `json:"s3_endpoint"`
	S3AccessKey         *string         `json:"s3_access_key"`
	S3SecretKey         *string         `json:"s3_secret_key"`
	S3Prefix            *string         `json:"s3_prefix"`
}

// parseJson overlays cfg with the file named by -c/-config, if any.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.ServerEndpointAddr, jc.ServerEndpointAddr)
	setString(&cfg.HealthService, jc.HealthService)
	setDuration(&cfg.OnlineCheckInterval, jc.OnlineCheckInterval)
	setString(&cfg.StoragePath, jc.StoragePath)
	setString(&cfg.DirectoryFile, jc.DirectoryFile)
	setString(&cfg.DirectoryDSN, jc.DirectoryDSN)
	setString(&cfg.TokenSecret, jc.TokenSecret)
	setDuration(&cfg.SessionTimeout, jc.SessionTimeout)
	setDuration(&cfg.WarningMargin, jc.WarningMargin)
	setString(&cfg.TrackedEvents, jc.TrackedEvents)
	setString(&cfg.LoginPath, jc.LoginPath)
	setString(&cfg.ReturnParam, jc.ReturnParam)
	if jc.LoginBurst != nil {
		cfg.LoginBurst = *jc.LoginBurst
	}
	setDuration(&cfg.LoginRefill, jc.LoginRefill)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)
	setString(&cfg.LogFile, jc.LogFile)
	setString(&cfg.MetricsAddr, jc.MetricsAddr)
	setString(&cfg.S3Bucket, jc.S3Bucket)
	setString(&cfg.S3Region, jc.S3Region)
	setString(&cfg.S3Endpoint, jc.S3Endpoint)
	setString(&cfg.S3AccessKey, jc.S3AccessKey)
	setString(&cfg.S3SecretKey, jc.S3SecretKey)
	setString(&cfg.S3Prefix, jc.S3Prefix)

	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
