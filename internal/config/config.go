// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/ingest.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Config, populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Provider
	SportMonksAPIToken          string
	SportMonksBaseURL           string
	SportMonksRequestsPerMinute int
	ProviderTimeout             time.Duration
	ProviderMaxRetries          int

	// Sync
	SyncWorkers     int
	SyncStepTimeout time.Duration // 0 = no per-step deadline
	SyncInterval    time.Duration // 0 = no scheduled runs
	JobRetention    time.Duration

	// Cache and cross-instance notification
	CacheEnabled      bool
	CacheTTL          time.Duration
	SyncNotifyEnabled bool

	// Logging
	LogLevel  string
	LogFormat string // text, json
}

// Load reads configuration from environment variables with sensible defaults.
// A missing database URL is not an error here; see RequireDatabase.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:    envOr("DATABASE_URL", envOr("NEON_DATABASE_URL", "")),
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		SportMonksAPIToken:          envOr("SPORTMONKS_API_TOKEN", ""),
		SportMonksBaseURL:           envOr("SPORTMONKS_BASE_URL", "https://api.sportmonks.com/v3"),
		SportMonksRequestsPerMinute: envInt("SPORTMONKS_REQUESTS_PER_MINUTE", 180),
		ProviderTimeout:             envDuration("PROVIDER_TIMEOUT", 30*time.Second),
		ProviderMaxRetries:          envInt("PROVIDER_MAX_RETRIES", 3),

		SyncWorkers:     envInt("SYNC_WORKERS", 4),
		SyncStepTimeout: envDuration("SYNC_STEP_TIMEOUT", 0),
		SyncInterval:    envDuration("SYNC_INTERVAL", 0),
		JobRetention:    envDuration("JOB_RETENTION", time.Hour),

		CacheEnabled:      envBool("CACHE_ENABLED", true),
		CacheTTL:          envDuration("CACHE_TTL", 5*time.Minute),
		SyncNotifyEnabled: envBool("SYNC_NOTIFY_ENABLED", false),

		LogLevel:  envOr("LOG_LEVEL", "info"),
		LogFormat: envOr("LOG_FORMAT", "text"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.SyncWorkers < 1 {
		errs = append(errs, fmt.Errorf("SYNC_WORKERS must be positive, got %d", c.SyncWorkers))
	}
	if c.DBPoolMinConns < 0 || c.DBPoolMaxConns < 1 || c.DBPoolMinConns > c.DBPoolMaxConns {
		errs = append(errs, fmt.Errorf("invalid pool bounds: min %d, max %d", c.DBPoolMinConns, c.DBPoolMaxConns))
	}
	if c.ProviderMaxRetries < 0 {
		errs = append(errs, fmt.Errorf("PROVIDER_MAX_RETRIES must not be negative, got %d", c.ProviderMaxRetries))
	}
	if c.SportMonksRequestsPerMinute < 1 {
		errs = append(errs, fmt.Errorf("SPORTMONKS_REQUESTS_PER_MINUTE must be positive, got %d", c.SportMonksRequestsPerMinute))
	}
	if c.ProviderTimeout <= 0 {
		errs = append(errs, errors.New("PROVIDER_TIMEOUT must be positive"))
	}
	if c.SyncStepTimeout < 0 || c.SyncInterval < 0 || c.JobRetention < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}
	if c.RateLimitEnabled && (c.RateLimitRequests < 1 || c.RateLimitWindow <= 0) {
		errs = append(errs, errors.New("rate limit requires positive RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW"))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// RequireDatabase fails when no database URL is configured.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL or NEON_DATABASE_URL must be set")
	}
	return nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.LogLevel)
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q", s)
	}
	return level, nil
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

// envDuration accepts Go durations ("90s", "5m") or a bare number of seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
