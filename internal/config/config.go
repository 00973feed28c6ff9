// Package config loads the service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime settings. Defaults follow the service contract;
// every field can be overridden through the environment.
type Config struct {
	Port           int
	DatabaseURL    string
	LLMAPIKey      string
	AllowedOrigins []string
	Debug          bool
	SeedData       bool

	DBPoolSize    int
	DBMaxOverflow int

	QueryTimeout  time.Duration
	MaxResultRows int

	MaxQueryLength int
	MaxRetries     int
	DefaultLimit   int
	MaxLimit       int

	PromptsDir string
}

// Load reads configuration from the environment. It returns an error for
// values that fail to parse; missing values fall back to defaults. The
// presence checks for DATABASE_URL and the LLM key happen at boot, not
// here, so tests can build partial configs.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           8000,
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		LLMAPIKey:      firstEnv("LLM_API_KEY", "ANTHROPIC_API_KEY"),
		AllowedOrigins: splitOrigins(os.Getenv("ALLOWED_ORIGINS")),
		QueryTimeout:   30 * time.Second,
		MaxResultRows:  1000,
		MaxQueryLength: 5000,
		MaxRetries:     2,
		DefaultLimit:   100,
		MaxLimit:       1000,
		DBPoolSize:     5,
		DBMaxOverflow:  10,
		PromptsDir:     "prompts",
	}

	var err error
	if cfg.Port, err = intEnv("PORT", cfg.Port); err != nil {
		return nil, err
	}
	if cfg.DBPoolSize, err = intEnv("DB_POOL_SIZE", cfg.DBPoolSize); err != nil {
		return nil, err
	}
	if cfg.DBMaxOverflow, err = intEnv("DB_MAX_OVERFLOW", cfg.DBMaxOverflow); err != nil {
		return nil, err
	}
	if cfg.MaxResultRows, err = intEnv("MAX_RESULT_ROWS", cfg.MaxResultRows); err != nil {
		return nil, err
	}
	if cfg.MaxQueryLength, err = intEnv("MAX_QUERY_LENGTH", cfg.MaxQueryLength); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = intEnv("MAX_RETRIES", cfg.MaxRetries); err != nil {
		return nil, err
	}
	if cfg.DefaultLimit, err = intEnv("DEFAULT_LIMIT", cfg.DefaultLimit); err != nil {
		return nil, err
	}
	if cfg.MaxLimit, err = intEnv("MAX_LIMIT", cfg.MaxLimit); err != nil {
		return nil, err
	}

	seconds, err := intEnv("QUERY_TIMEOUT_SECONDS", int(cfg.QueryTimeout/time.Second))
	if err != nil {
		return nil, err
	}
	cfg.QueryTimeout = time.Duration(seconds) * time.Second

	cfg.Debug = boolEnv("DEBUG")
	cfg.SeedData = boolEnv("SEED_DATA")
	if dir := os.Getenv("PROMPTS_DIR"); dir != "" {
		cfg.PromptsDir = dir
	}
	return cfg, nil
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func boolEnv(key string) bool {
	return strings.EqualFold(os.Getenv(key), "true")
}

func splitOrigins(raw string) []string {
	if raw == "" {
		return []string{"http://localhost:5173", "http://localhost:3000"}
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
