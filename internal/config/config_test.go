package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"ABO_DATABASE_PATH", "ABO_MATURITY_DAYS", "BATCH_WORKERS", "REDIS_URL",
		"RABBITMQ_URL", "GOOGLE_SHEET_URL", "ABO_PLUGIN_MANIFEST", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "abo.db", cfg.DatabasePath)
	assert.Equal(t, 14, cfg.MaturityDays)
	assert.Equal(t, 14*24*time.Hour, cfg.MaturityOffset())
	assert.Equal(t, 4, cfg.BatchWorkers)
	assert.Empty(t, cfg.RedisURL)
	assert.Equal(t, "info", cfg.GetLoggerConfig().Level)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ABO_DATABASE_PATH", "/var/lib/abo/abo.db")
	t.Setenv("ABO_MATURITY_DAYS", "0")
	t.Setenv("BATCH_WORKERS", "8")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/abo/abo.db", cfg.DatabasePath)
	assert.Zero(t, cfg.MaturityOffset())
	assert.Equal(t, 8, cfg.BatchWorkers)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name, key, value, wantErr string
	}{
		{"negative maturity", "ABO_MATURITY_DAYS", "-1", "ABO_MATURITY_DAYS must not be negative"},
		{"maturity not a number", "ABO_MATURITY_DAYS", "zwei", "ABO_MATURITY_DAYS must be an integer"},
		{"no workers", "BATCH_WORKERS", "0", "BATCH_WORKERS must be at least 1"},
		{"bad log level", "LOG_LEVEL", "loud", "LOG_LEVEL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
