// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration loaded from environment
// variables. It is built once at startup and passed explicitly to the
// services that need it; nothing reads the environment after Load returns.
type Config struct {
	GitHubToken   string
	PollInterval  time.Duration
	FetchTimeout  time.Duration
	MaxConcurrent int
	ListenAddr    string
	DBPath        string
	WebhookURL    string

	// ExactTimers gates the high-precision wake-up strategy. When false the
	// scheduler degrades to the tolerance-window timer without failing.
	ExactTimers bool

	// SeedDefaults controls the one-time default repository seeding on an
	// empty database.
	SeedDefaults bool
}

// HasGitHubToken reports whether a bearer credential is configured. An
// absent token never prevents polling; it only lowers API rate limits.
func (c *Config) HasGitHubToken() bool {
	return c.GitHubToken != ""
}

// Load reads configuration from the environment and returns a validated
// Config. A .env file in the working directory is applied first when
// present. All variables are optional; defaults: FORKNEWS_POLL_INTERVAL
// (5m), FORKNEWS_FETCH_TIMEOUT (30s), FORKNEWS_MAX_CONCURRENT (4),
// FORKNEWS_LISTEN_ADDR (127.0.0.1:8080), FORKNEWS_DB_PATH (forknews.db),
// FORKNEWS_EXACT_TIMERS (true), FORKNEWS_SEED_DEFAULTS (true).
func Load() (*Config, error) {
	// Missing .env is the normal case; only the environment is authoritative.
	_ = godotenv.Load()

	cfg := &Config{
		GitHubToken:   os.Getenv("FORKNEWS_GITHUB_TOKEN"),
		PollInterval:  5 * time.Minute,
		FetchTimeout:  30 * time.Second,
		MaxConcurrent: 4,
		ListenAddr:    "127.0.0.1:8080",
		DBPath:        "forknews.db",
		WebhookURL:    os.Getenv("FORKNEWS_WEBHOOK_URL"),
		ExactTimers:   true,
		SeedDefaults:  true,
	}

	if v, ok := os.LookupEnv("FORKNEWS_POLL_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("FORKNEWS_POLL_INTERVAL has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("FORKNEWS_POLL_INTERVAL must be positive, got %q", v)
		}
		cfg.PollInterval = parsed
	}

	if v, ok := os.LookupEnv("FORKNEWS_FETCH_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("FORKNEWS_FETCH_TIMEOUT has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("FORKNEWS_FETCH_TIMEOUT must be positive, got %q", v)
		}
		cfg.FetchTimeout = parsed
	}

	if v, ok := os.LookupEnv("FORKNEWS_MAX_CONCURRENT"); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			return nil, fmt.Errorf("FORKNEWS_MAX_CONCURRENT must be a positive integer, got %q", v)
		}
		cfg.MaxConcurrent = parsed
	}

	if v, ok := os.LookupEnv("FORKNEWS_LISTEN_ADDR"); ok {
		cfg.ListenAddr = v
	}

	if v, ok := os.LookupEnv("FORKNEWS_DB_PATH"); ok {
		cfg.DBPath = v
	}

	var err error
	if cfg.ExactTimers, err = boolEnv("FORKNEWS_EXACT_TIMERS", true); err != nil {
		return nil, err
	}
	if cfg.SeedDefaults, err = boolEnv("FORKNEWS_SEED_DEFAULTS", true); err != nil {
		return nil, err
	}

	return cfg, nil
}

func boolEnv(key string, def bool) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, v)
	}
	return parsed, nil
}
