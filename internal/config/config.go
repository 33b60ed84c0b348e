package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the WatchingCat dashboard.
type Config struct {
	// Backend connection settings
	BackendURL     string
	RequestTimeout time.Duration // Upper bound for a single backend call

	// Refresh behaviour
	RefreshInterval time.Duration // How often the dashboard regions are re-fetched

	// Links rendered into the UI
	JaegerURL string

	// Web UI
	WebPort    string
	SessionTTL time.Duration // Idle browser sessions older than this are evicted

	// Logging
	LogLevel string // DEBUG, INFO, WARN, ERROR
}

// Load reads configuration from environment variables (and an optional .env
// file in the working directory) and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env is optional

	intervalMs, err := strconv.Atoi(getEnv("REFRESH_INTERVAL_MS", "5000"))
	if err != nil {
		return nil, fmt.Errorf("REFRESH_INTERVAL_MS: %w", err)
	}

	timeout, err := time.ParseDuration(getEnv("REQUEST_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("REQUEST_TIMEOUT: %w", err)
	}

	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("SESSION_TTL: %w", err)
	}

	cfg := &Config{
		BackendURL:      getEnv("BACKEND_URL", "http://localhost:3001"),
		RequestTimeout:  timeout,
		RefreshInterval: time.Duration(intervalMs) * time.Millisecond,
		JaegerURL:       getEnv("JAEGER_URL", "http://localhost:16686"),
		WebPort:         getEnv("WEB_PORT", "8090"),
		SessionTTL:      ttl,
		LogLevel:        getEnv("LOG_LEVEL", "INFO"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that may also have been overridden by CLI flags.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BACKEND_URL %q is not an absolute URL", c.BackendURL)
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %s", c.RefreshInterval)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive, got %s", c.SessionTTL)
	}
	if c.WebPort == "" {
		return fmt.Errorf("WEB_PORT is required")
	}
	return nil
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
