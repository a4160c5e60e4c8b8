// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Storage backends accepted by STORE_BACKEND.
const (
	StoreFile     = "file"
	StoreS3       = "s3"
	StorePostgres = "postgres"
)

// Static errors for configuration validation.
var (
	// ErrUnknownStoreBackend is returned when STORE_BACKEND is not file, s3 or postgres.
	ErrUnknownStoreBackend = errors.New("config: STORE_BACKEND must be file, s3 or postgres")
	// ErrS3BucketRequired is returned when the s3 backend is selected without S3_BUCKET.
	ErrS3BucketRequired = errors.New("config: S3_BUCKET is required for the s3 store")
	// ErrDatabaseURLRequired is returned when the postgres backend is selected without DATABASE_URL.
	ErrDatabaseURLRequired = errors.New("config: DATABASE_URL is required for the postgres store")
	// ErrProviderBaseURLRequired is returned when PROVIDER_BASE_URL is empty.
	ErrProviderBaseURLRequired = errors.New("config: PROVIDER_BASE_URL is required")
	// ErrInvalidDuration is returned when an interval or timeout is negative.
	ErrInvalidDuration = errors.New("config: durations must not be negative")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// Provider gateway settings
	ProviderBaseURL string        `env:"PROVIDER_BASE_URL, default=https://www.mxhdai.top" json:"provider_base_url"`
	ProviderAPIKey  string        `env:"PROVIDER_API_KEY" json:"-"` // Masked in JSON
	HTTPTimeout     time.Duration `env:"HTTP_TIMEOUT, default=120s" json:"http_timeout"`

	// Polling settings
	ImagePollInterval time.Duration `env:"IMAGE_POLL_INTERVAL, default=3s" json:"image_poll_interval"`
	VideoPollInterval time.Duration `env:"VIDEO_POLL_INTERVAL, default=5s" json:"video_poll_interval"`
	PollTimeout       time.Duration `env:"POLL_TIMEOUT, default=0s" json:"poll_timeout"`

	// Task store settings
	StoreBackend string `env:"STORE_BACKEND, default=file" json:"store_backend"`
	StoreDir     string `env:"STORE_DIR, default=/tmp/mediagen/assets" json:"store_dir"`

	// S3 store settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	S3Prefix           string `env:"S3_PREFIX, default=assets/" json:"s3_prefix"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// PostgreSQL store settings
	DatabaseURL string `env:"DATABASE_URL" json:"-"` // Masked in JSON, may carry a password

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// Load reads configuration from environment variables using go-envconfig and
// validates it.
func Load() (*Config, error) {
	return load(context.Background(), envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected backends have what they need.
func (c *Config) Validate() error {
	if c.ProviderBaseURL == "" {
		return ErrProviderBaseURLRequired
	}
	if c.HTTPTimeout < 0 || c.ImagePollInterval < 0 || c.VideoPollInterval < 0 || c.PollTimeout < 0 {
		return ErrInvalidDuration
	}

	switch strings.ToLower(c.StoreBackend) {
	case StoreFile:
	case StoreS3:
		if c.S3Bucket == "" {
			return ErrS3BucketRequired
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return ErrDatabaseURLRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStoreBackend, c.StoreBackend)
	}
	return nil
}

// Backend returns the normalized store backend name.
func (c *Config) Backend() string {
	return strings.ToLower(c.StoreBackend)
}

// HasCredential reports whether a provider API key is configured.
func (c *Config) HasCredential() bool {
	return c.ProviderAPIKey != ""
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, ProviderBaseURL: %s, ProviderAPIKey: %s, HTTPTimeout: %s, ImagePollInterval: %s, VideoPollInterval: %s, PollTimeout: %s, StoreBackend: %s, StoreDir: %s, S3Bucket: %s, S3Region: %s, S3Prefix: %s, DatabaseURL: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.ProviderBaseURL,
		mask(c.ProviderAPIKey),
		c.HTTPTimeout,
		c.ImagePollInterval,
		c.VideoPollInterval,
		c.PollTimeout,
		c.StoreBackend,
		c.StoreDir,
		c.S3Bucket,
		c.S3Region,
		c.S3Prefix,
		mask(c.DatabaseURL),
		c.LogFormat,
		c.LogLevel,
	)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "***"
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
