package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// ErrInvalid is returned when a configuration value is out of range.
var ErrInvalid = errors.New("invalid config")

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML content, applies defaults and validates the result.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *AppConfig {
	var cfg AppConfig
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}

	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = "gemini-2.5-flash-lite"
	}
	if cfg.Gemini.Timeout == 0 {
		cfg.Gemini.Timeout = 30 * time.Second
	}

	if cfg.Classifier.DefaultLabel == "" {
		cfg.Classifier.DefaultLabel = "uncertain"
	}
	if cfg.Classifier.SnippetBudget == 0 {
		cfg.Classifier.SnippetBudget = 4000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	a := &cfg.Agent
	if a.BackendURL == "" {
		a.BackendURL = "http://localhost:3000/v1/classify"
	}
	if a.Storage == "" {
		a.Storage = "memory"
	}
	if a.AuditStorage == "" {
		a.AuditStorage = a.Storage
	}
	if a.CacheTTL == 0 {
		a.CacheTTL = 24 * time.Hour
	}
	if a.MaxCacheEntries == 0 {
		a.MaxCacheEntries = 100
	}
	if a.BackoffDuration == 0 {
		a.BackoffDuration = 5 * time.Minute
	}
	if a.RequestTimeout == 0 {
		a.RequestTimeout = 30 * time.Second
	}
	if a.AuditMaxEntries == 0 {
		a.AuditMaxEntries = 50
	}
	if len(a.Kafka.Brokers) > 0 && a.Kafka.Topic == "" {
		a.Kafka.Topic = "edufilter.classifications"
	}
}

func validate(cfg *AppConfig) error {
	switch cfg.Classifier.DefaultLabel {
	case "uncertain", "non-educational":
	default:
		return fmt.Errorf("%w: classifier.default_label %q", ErrInvalid, cfg.Classifier.DefaultLabel)
	}
	if cfg.Classifier.SnippetBudget < 0 {
		return fmt.Errorf("%w: classifier.snippet_budget must be positive", ErrInvalid)
	}

	switch cfg.Agent.Storage {
	case "memory", "redis":
	default:
		return fmt.Errorf("%w: agent.storage %q", ErrInvalid, cfg.Agent.Storage)
	}
	switch cfg.Agent.AuditStorage {
	case "memory", "redis", "postgres":
	default:
		return fmt.Errorf("%w: agent.audit_storage %q", ErrInvalid, cfg.Agent.AuditStorage)
	}
	if cfg.Agent.Storage == "redis" && cfg.Redis.URL == "" {
		return fmt.Errorf("%w: agent.storage=redis requires redis.url", ErrInvalid)
	}
	if cfg.Agent.AuditStorage == "redis" && cfg.Redis.URL == "" {
		return fmt.Errorf("%w: agent.audit_storage=redis requires redis.url", ErrInvalid)
	}
	if cfg.Agent.AuditStorage == "postgres" && cfg.Database.URL == "" {
		return fmt.Errorf("%w: agent.audit_storage=postgres requires database.url", ErrInvalid)
	}
	if cfg.Agent.MaxCacheEntries < 1 {
		return fmt.Errorf("%w: agent.max_cache_entries must be at least 1", ErrInvalid)
	}
	if cfg.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("%w: rate_limit.requests_per_minute must not be negative", ErrInvalid)
	}
	return nil
}
