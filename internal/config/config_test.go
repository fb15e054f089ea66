package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shalaykin1/forknews/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 4, cfg.MaxConcurrent)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "forknews.db", cfg.DBPath)
	assert.True(t, cfg.ExactTimers)
	assert.True(t, cfg.SeedDefaults)
	assert.False(t, cfg.HasGitHubToken())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("FORKNEWS_GITHUB_TOKEN", "ghp_test")
	t.Setenv("FORKNEWS_POLL_INTERVAL", "90s")
	t.Setenv("FORKNEWS_FETCH_TIMEOUT", "5s")
	t.Setenv("FORKNEWS_MAX_CONCURRENT", "8")
	t.Setenv("FORKNEWS_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("FORKNEWS_DB_PATH", "/tmp/test.db")
	t.Setenv("FORKNEWS_WEBHOOK_URL", "https://hooks.example.com/forknews")
	t.Setenv("FORKNEWS_EXACT_TIMERS", "false")
	t.Setenv("FORKNEWS_SEED_DEFAULTS", "false")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "ghp_test", cfg.GitHubToken)
	assert.True(t, cfg.HasGitHubToken())
	assert.Equal(t, 90*time.Second, cfg.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 8, cfg.MaxConcurrent)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, "https://hooks.example.com/forknews", cfg.WebhookURL)
	assert.False(t, cfg.ExactTimers)
	assert.False(t, cfg.SeedDefaults)
}

func TestLoad_InvalidPollInterval(t *testing.T) {
	t.Setenv("FORKNEWS_POLL_INTERVAL", "often")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_NegativePollInterval(t *testing.T) {
	t.Setenv("FORKNEWS_POLL_INTERVAL", "-5m")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_InvalidMaxConcurrent(t *testing.T) {
	t.Setenv("FORKNEWS_MAX_CONCURRENT", "0")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_InvalidBool(t *testing.T) {
	t.Setenv("FORKNEWS_EXACT_TIMERS", "maybe")

	_, err := config.Load()
	assert.Error(t, err)
}
