package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Config holds the configuration for the check-in service.
// Environment variables are automatically parsed from the LOCUSTGRUB_ prefix.
type Config struct {
	// DBDriver selects the record store backend: "postgres", "file" or
	// "auto". Auto picks postgres when a DSN is configured, the local file
	// log otherwise.
	DBDriver string `envconfig:"DB_DRIVER" default:"auto"`

	// Postgres configuration
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`

	// File-log configuration (degraded single-process mode)
	DataFile string `envconfig:"DATA_FILE" default:"data/checkins.json"`

	// HTTP configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Every store operation is bounded by this timeout; expiry surfaces as
	// storage-unavailable to the caller.
	StoreTimeoutSeconds int `envconfig:"STORE_TIMEOUT_SECONDS" default:"5"`

	// Health checking
	HealthIntervalSeconds     int `envconfig:"HEALTH_INTERVAL_SECONDS" default:"15"`
	HealthProbeTimeoutSeconds int `envconfig:"HEALTH_PROBE_TIMEOUT_SECONDS" default:"2"`
}

// ResolveDefaults derives the store driver when DBDriver is "auto" or empty:
// postgres when a DSN is present, the local file log otherwise.
func (c *Config) ResolveDefaults() error {
	if c.DBDriver == "" || c.DBDriver == "auto" {
		if c.PostgresDSN != "" {
			c.DBDriver = "postgres"
		} else {
			c.DBDriver = "file"
		}
	}

	switch c.DBDriver {
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("DB_DRIVER=postgres requires POSTGRES_DSN")
		}
	case "file":
		if c.DataFile == "" {
			return fmt.Errorf("DB_DRIVER=file requires DATA_FILE")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
	return nil
}

// New creates a new Config by parsing environment variables.
// Environment variables should be prefixed with LOCUSTGRUB_
// Example: LOCUSTGRUB_HTTP_PORT, LOCUSTGRUB_POSTGRES_DSN
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("LOCUSTGRUB", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("db_driver", cfg.DBDriver).
		Int("port", cfg.HTTPPort).
		Bool("postgres_dsn_present", cfg.PostgresDSN != "").
		Str("data_file", cfg.DataFile).
		Int("store_timeout_seconds", cfg.StoreTimeoutSeconds).
		Msg("Configuration loaded")

	return &cfg, nil
}

// StoreTimeout returns the bounded per-operation store timeout.
func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutSeconds) * time.Second
}

// GetHTTPAddr returns the HTTP server address.
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
