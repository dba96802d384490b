package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BindAddr != ":8000" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8000")
	}
	if cfg.MinSimilarity != 0.7 {
		t.Fatalf("MinSimilarity = %v, want 0.7", cfg.MinSimilarity)
	}
	if cfg.RecentLimit != 5 || cfg.SemanticLimit != 3 {
		t.Fatalf("limits = %d/%d, want 5/3", cfg.RecentLimit, cfg.SemanticLimit)
	}
	if cfg.Retention != 30*24*time.Hour {
		t.Fatalf("Retention = %v, want 720h", cfg.Retention)
	}
	if cfg.DatabaseURL != "" {
		t.Fatalf("DatabaseURL = %q, want empty default", cfg.DatabaseURL)
	}
}

func TestLoadOverrides(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("MEMORY_MIN_SIMILARITY", "0.55")
	t.Setenv("MEMORY_RECENT_LIMIT", "10")
	t.Setenv("MEMORY_STORE_TIMEOUT", "2s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MinSimilarity != 0.55 {
		t.Fatalf("MinSimilarity = %v, want 0.55", cfg.MinSimilarity)
	}
	if cfg.RecentLimit != 10 {
		t.Fatalf("RecentLimit = %d, want 10", cfg.RecentLimit)
	}
	if cfg.StoreTimeout != 2*time.Second {
		t.Fatalf("StoreTimeout = %v, want 2s", cfg.StoreTimeout)
	}
}

func TestLoadRejectsBadSimilarity(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("MEMORY_MIN_SIMILARITY", "1.5")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() should reject similarity > 1")
	}
}

func TestLoadRejectsUnparsableDuration(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("MEMORY_RETENTION", "thirty days")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() should reject an unparsable duration")
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_SESSION_INACTIVITY_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"DATABASE_URL",
		"MEMORY_PATH",
		"MEMORY_MIN_SIMILARITY",
		"MEMORY_RECENT_LIMIT",
		"MEMORY_SEMANTIC_LIMIT",
		"MEMORY_SEMANTIC_RETRIES",
		"MEMORY_STORE_TIMEOUT",
		"MEMORY_RETENTION",
		"MEMORY_CLEANUP_INTERVAL",
		"ANTHROPIC_API_KEY",
		"ANTHROPIC_MODEL",
		"ANTHROPIC_MAX_TOKENS",
		"OPENAI_API_KEY",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
