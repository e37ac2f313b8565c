package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvStr(t *testing.T) {
	t.Setenv("TEST_STR", "hello")
	assert.Equal(t, "hello", envStr("TEST_STR", "fallback"))
	assert.Equal(t, "fallback", envStr("TEST_STR_MISSING", "fallback"))
}

func TestEnvInt(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	assert.Equal(t, 42, envInt("TEST_INT", 0))

	// Missing and unparseable values both fall back to the default.
	assert.Equal(t, 99, envInt("TEST_INT_MISSING", 99))
	t.Setenv("TEST_INT_BAD", "abc")
	assert.Equal(t, 7, envInt("TEST_INT_BAD", 7))
}

func TestEnvFloat(t *testing.T) {
	t.Setenv("TEST_FLOAT", "1.5")
	assert.Equal(t, 1.5, envFloat("TEST_FLOAT", 0))
	assert.Equal(t, 24.0, envFloat("TEST_FLOAT_MISSING", 24.0))
}

func TestEnvDuration(t *testing.T) {
	t.Setenv("TEST_DUR", "5s")
	assert.Equal(t, 5*time.Second, envDuration("TEST_DUR", 0))

	t.Setenv("TEST_DUR_BAD", "five-seconds")
	assert.Equal(t, time.Minute, envDuration("TEST_DUR_BAD", time.Minute))
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "hivemind.db", cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 5, cfg.BusyRetries)
	assert.Zero(t, cfg.DefaultTTLHours)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HIVEMIND_DB_PATH", "/tmp/claims.db")
	t.Setenv("HIVEMIND_DEFAULT_TTL_HOURS", "0.5")
	t.Setenv("HIVEMIND_PURGE_INTERVAL", "30s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/claims.db", cfg.DBPath)
	assert.Equal(t, 0.5, cfg.DefaultTTLHours)
	assert.Equal(t, 30*time.Second, cfg.PurgeInterval)
}

func TestValidateRejectsNegativeTTL(t *testing.T) {
	cfg := Config{DBPath: "x.db", DefaultTTLHours: -1}
	assert.Error(t, cfg.Validate())
}
