package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.QueryTimeout)
	assert.Equal(t, 1000, cfg.MaxResultRows)
	assert.Equal(t, 5000, cfg.MaxQueryLength)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, 100, cfg.DefaultLimit)
	assert.Equal(t, 1000, cfg.MaxLimit)
	assert.Equal(t, 5, cfg.DBPoolSize)
	assert.Equal(t, 10, cfg.DBMaxOverflow)
	assert.Equal(t, "prompts", cfg.PromptsDir)
	assert.NotEmpty(t, cfg.AllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("QUERY_TIMEOUT_SECONDS", "10")
	t.Setenv("MAX_RETRIES", "1")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com")
	t.Setenv("DEBUG", "true")
	t.Setenv("SEED_DATA", "TRUE")
	t.Setenv("PROMPTS_DIR", "/etc/assistant/prompts")
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.QueryTimeout)
	assert.Equal(t, 1, cfg.MaxRetries)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.AllowedOrigins)
	assert.True(t, cfg.Debug)
	assert.True(t, cfg.SeedData)
	assert.Equal(t, "/etc/assistant/prompts", cfg.PromptsDir)
	assert.Equal(t, "test-key", cfg.LLMAPIKey)
}

func TestLoadPrefersLLMAPIKey(t *testing.T) {
	t.Setenv("LLM_API_KEY", "primary")
	t.Setenv("ANTHROPIC_API_KEY", "secondary")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "primary", cfg.LLMAPIKey)
}

func TestLoadRejectsUnparsableInt(t *testing.T) {
	t.Setenv("PORT", "not-a-number")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
}
