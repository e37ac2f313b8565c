package hivemind

import (
	"log/slog"
	"time"
)

// Option configures an Engine.
type Option func(*resolvedOptions)

// resolvedOptions holds all configuration overrides after applying defaults.
// Unexported — callers use the With* functions.
type resolvedOptions struct {
	dbPath          string
	logger          *slog.Logger
	version         string
	otelEndpoint    string
	clock           func() time.Time
	defaultTTLHours float64
	purgeInterval   time.Duration
}

// WithDBPath overrides the SQLite file path from config (HIVEMIND_DB_PATH
// env var). Parent directories are created if missing.
func WithDBPath(path string) Option {
	return func(o *resolvedOptions) { o.dbPath = path }
}

// WithLogger sets the structured logger for the Engine.
// If not set, the default slog logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithVersion sets the version string reported over MCP and in logs.
func WithVersion(version string) Option {
	return func(o *resolvedOptions) { o.version = version }
}

// WithOTELEndpoint overrides the OTLP endpoint from config
// (OTEL_EXPORTER_OTLP_ENDPOINT env var). Empty disables telemetry export.
func WithOTELEndpoint(endpoint string) Option {
	return func(o *resolvedOptions) { o.otelEndpoint = endpoint }
}

// WithClock replaces the wall clock used to stamp created_at/updated_at.
// Tests use this to make timestamps deterministic.
func WithClock(now func() time.Time) Option {
	return func(o *resolvedOptions) { o.clock = now }
}

// WithDefaultTTL applies a TTL, in hours, to every claim created without
// one. Zero leaves claims immortal.
func WithDefaultTTL(hours float64) Option {
	return func(o *resolvedOptions) { o.defaultTTLHours = hours }
}

// WithPurgeInterval enables the background sweep that deprecates expired
// claims while Run is active.
func WithPurgeInterval(d time.Duration) Option {
	return func(o *resolvedOptions) { o.purgeInterval = d }
}
