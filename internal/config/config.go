// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Database settings.
	DBPath string // Path to the SQLite workspace file.

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	// Operational settings.
	LogLevel        string
	BusyRetries     int           // Retry attempts on a locked database.
	BusyRetryDelay  time.Duration // Base delay between retries, doubled each attempt.
	DefaultTTLHours float64       // TTL applied to claims created without one; 0 disables.
	PurgeInterval   time.Duration // How often expired claims are deprecated; 0 disables the sweep.
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		DBPath:          envStr("HIVEMIND_DB_PATH", "hivemind.db"),
		OTELEndpoint:    envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure:    envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		ServiceName:     envStr("OTEL_SERVICE_NAME", "hivemind-claims"),
		LogLevel:        envStr("HIVEMIND_LOG_LEVEL", "info"),
		BusyRetries:     envInt("HIVEMIND_BUSY_RETRIES", 5),
		BusyRetryDelay:  envDuration("HIVEMIND_BUSY_RETRY_DELAY", 50*time.Millisecond),
		DefaultTTLHours: envFloat("HIVEMIND_DEFAULT_TTL_HOURS", 0),
		PurgeInterval:   envDuration("HIVEMIND_PURGE_INTERVAL", 0),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present.
func (c Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("config: HIVEMIND_DB_PATH is required")
	}
	if c.BusyRetries < 0 {
		return fmt.Errorf("config: HIVEMIND_BUSY_RETRIES must not be negative")
	}
	if c.DefaultTTLHours < 0 {
		return fmt.Errorf("config: HIVEMIND_DEFAULT_TTL_HOURS must not be negative")
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
