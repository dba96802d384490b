package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the companion service.
type Config struct {
	BindAddr         string
	MetricsNamespace string
	ShutdownTimeout  time.Duration
	AllowAnyOrigin   bool

	SessionInactivityTimeout time.Duration

	DatabaseURL   string
	MemoryPath    string
	MinSimilarity float64
	RecentLimit   int
	SemanticLimit int

	StoreTimeout    time.Duration
	SemanticRetries int
	Retention       time.Duration
	CleanupInterval time.Duration

	AnthropicAPIKey string
	AnthropicModel  string
	MaxTokens       int

	OpenAIAPIKey string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8000"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "ethicompanion"),
		AllowAnyOrigin:   false,
		DatabaseURL:      envTrimmed("DATABASE_URL"),
		MemoryPath:       envTrimmed("MEMORY_PATH"),
		MinSimilarity:    0.7,
		RecentLimit:      5,
		SemanticLimit:    3,
		StoreTimeout:     5 * time.Second,
		SemanticRetries:  2,
		// Conversations older than this are eligible for maintenance cleanup.
		Retention:                30 * 24 * time.Hour,
		CleanupInterval:          time.Hour,
		SessionInactivityTimeout: 30 * time.Minute,
		ShutdownTimeout:          15 * time.Second,
		AnthropicAPIKey:          envTrimmed("ANTHROPIC_API_KEY"),
		AnthropicModel:           envOrDefault("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		MaxTokens:                1024,
		OpenAIAPIKey:             envTrimmed("OPENAI_API_KEY"),
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.StoreTimeout, err = durationFromEnv("MEMORY_STORE_TIMEOUT", cfg.StoreTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.Retention, err = durationFromEnv("MEMORY_RETENTION", cfg.Retention)
	if err != nil {
		return Config{}, err
	}
	cfg.CleanupInterval, err = durationFromEnv("MEMORY_CLEANUP_INTERVAL", cfg.CleanupInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.MinSimilarity, err = floatFromEnv("MEMORY_MIN_SIMILARITY", cfg.MinSimilarity)
	if err != nil {
		return Config{}, err
	}
	cfg.RecentLimit, err = intFromEnv("MEMORY_RECENT_LIMIT", cfg.RecentLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.SemanticLimit, err = intFromEnv("MEMORY_SEMANTIC_LIMIT", cfg.SemanticLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.SemanticRetries, err = intFromEnv("MEMORY_SEMANTIC_RETRIES", cfg.SemanticRetries)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxTokens, err = intFromEnv("ANTHROPIC_MAX_TOKENS", cfg.MaxTokens)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.MinSimilarity <= 0 || cfg.MinSimilarity > 1 {
		return Config{}, fmt.Errorf("MEMORY_MIN_SIMILARITY must be in (0, 1]")
	}
	if cfg.RecentLimit <= 0 {
		return Config{}, fmt.Errorf("MEMORY_RECENT_LIMIT must be positive")
	}
	if cfg.SemanticLimit <= 0 {
		return Config{}, fmt.Errorf("MEMORY_SEMANTIC_LIMIT must be positive")
	}
	if cfg.SemanticRetries < 0 {
		return Config{}, fmt.Errorf("MEMORY_SEMANTIC_RETRIES must be >= 0")
	}
	if cfg.StoreTimeout < 100*time.Millisecond {
		return Config{}, fmt.Errorf("MEMORY_STORE_TIMEOUT must be at least 100ms")
	}
	if cfg.Retention < time.Hour {
		return Config{}, fmt.Errorf("MEMORY_RETENTION must be at least 1h")
	}
	if cfg.SessionInactivityTimeout < time.Minute {
		return Config{}, fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 1m")
	}
	if cfg.MaxTokens <= 0 {
		return Config{}, fmt.Errorf("ANTHROPIC_MAX_TOKENS must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(envTrimmed(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
