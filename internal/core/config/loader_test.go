package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("expected default port 3000, got %d", cfg.Server.Port)
	}
	if cfg.Classifier.DefaultLabel != "uncertain" {
		t.Errorf("expected default label uncertain, got %q", cfg.Classifier.DefaultLabel)
	}
	if cfg.Classifier.SnippetBudget != 4000 {
		t.Errorf("expected snippet budget 4000, got %d", cfg.Classifier.SnippetBudget)
	}
	if cfg.Agent.CacheTTL != 24*time.Hour {
		t.Errorf("expected cache ttl 24h, got %v", cfg.Agent.CacheTTL)
	}
	if cfg.Agent.MaxCacheEntries != 100 {
		t.Errorf("expected 100 cache entries, got %d", cfg.Agent.MaxCacheEntries)
	}
	if cfg.Agent.BackoffDuration != 5*time.Minute {
		t.Errorf("expected backoff 5m, got %v", cfg.Agent.BackoffDuration)
	}
	if cfg.Agent.AuditMaxEntries != 50 {
		t.Errorf("expected audit max 50, got %d", cfg.Agent.AuditMaxEntries)
	}
	if cfg.Agent.AuditStorage != "memory" {
		t.Errorf("expected audit storage to follow storage, got %q", cfg.Agent.AuditStorage)
	}
}

func TestParse_ExpandsEnvAndDurations(t *testing.T) {
	t.Setenv("EDUFILTER_TEST_KEY", "secret-key")

	data := []byte(`
gemini:
  api_key: ${EDUFILTER_TEST_KEY}
  timeout: 5s
agent:
  cache_ttl: 1h
  flush_delay: 250ms
  kafka:
    brokers: ["localhost:9092"]
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Gemini.APIKey != "secret-key" {
		t.Errorf("expected expanded api key, got %q", cfg.Gemini.APIKey)
	}
	if cfg.Gemini.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", cfg.Gemini.Timeout)
	}
	if cfg.Agent.CacheTTL != time.Hour {
		t.Errorf("expected 1h ttl, got %v", cfg.Agent.CacheTTL)
	}
	if cfg.Agent.FlushDelay != 250*time.Millisecond {
		t.Errorf("expected 250ms flush delay, got %v", cfg.Agent.FlushDelay)
	}
	if cfg.Agent.Kafka.Topic != "edufilter.classifications" {
		t.Errorf("expected default kafka topic, got %q", cfg.Agent.Kafka.Topic)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown default label", "classifier:\n  default_label: educational\n"},
		{"unknown storage", "agent:\n  storage: disk\n"},
		{"redis storage without url", "agent:\n  storage: redis\n"},
		{"postgres audit without url", "agent:\n  audit_storage: postgres\n"},
		{"negative rate limit", "rate_limit:\n  requests_per_minute: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 8081\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8081 {
		t.Errorf("expected port 8081, got %d", cfg.Server.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
