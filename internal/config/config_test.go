package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"BACKEND_URL", "REFRESH_INTERVAL_MS", "REQUEST_TIMEOUT", "JAEGER_URL", "WEB_PORT", "SESSION_TTL", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3001", cfg.BackendURL)
	assert.Equal(t, 5*time.Second, cfg.RefreshInterval)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "http://localhost:16686", cfg.JaegerURL)
	assert.Equal(t, "8090", cfg.WebPort)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "INFO", cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("BACKEND_URL", "http://backend:9000")
	t.Setenv("REFRESH_INTERVAL_MS", "250")
	t.Setenv("REQUEST_TIMEOUT", "2s")
	t.Setenv("WEB_PORT", "3000")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://backend:9000", cfg.BackendURL)
	assert.Equal(t, 250*time.Millisecond, cfg.RefreshInterval)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "3000", cfg.WebPort)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"relative backend", "BACKEND_URL", "localhost:3001/api"},
		{"non-numeric interval", "REFRESH_INTERVAL_MS", "soon"},
		{"zero interval", "REFRESH_INTERVAL_MS", "0"},
		{"bad timeout", "REQUEST_TIMEOUT", "ten"},
		{"negative ttl", "SESSION_TTL", "-1h"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
