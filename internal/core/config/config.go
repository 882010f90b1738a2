package config

import (
	"time"

	redisclient "github.com/vietddude/edufilter/internal/infra/redis"
	"github.com/vietddude/edufilter/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server     ServerConfig       `yaml:"server"`
	Gemini     GeminiConfig       `yaml:"gemini"`
	Classifier ClassifierConfig   `yaml:"classifier"`
	RateLimit  RateLimitConfig    `yaml:"rate_limit"`
	Redis      redisclient.Config `yaml:"redis"`
	Database   postgres.Config    `yaml:"database"`
	Logging    LoggingConfig      `yaml:"logging"`
	Agent      AgentConfig        `yaml:"agent"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"` // empty = no origin check
}

// GeminiConfig holds settings for the language-model provider.
type GeminiConfig struct {
	APIKey          string        `yaml:"api_key"`
	CredentialsFile string        `yaml:"credentials_file"` // used when api_key is empty
	Model           string        `yaml:"model"`
	Endpoint        string        `yaml:"endpoint"`
	Timeout         time.Duration `yaml:"timeout"`
	NoAuth          bool          `yaml:"no_auth"` // local stand-in model servers only
}

// ClassifierConfig tunes prompt building and validation.
type ClassifierConfig struct {
	DefaultLabel  string `yaml:"default_label"` // uncertain, non-educational
	SnippetBudget int    `yaml:"snippet_budget"`
}

// RateLimitConfig configures the per-installation limiter on /v1/classify.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"` // 0 = disabled
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// AgentConfig holds settings for the client-side classification agent.
type AgentConfig struct {
	BackendURL      string        `yaml:"backend_url"`
	Storage         string        `yaml:"storage"`       // memory, redis
	AuditStorage    string        `yaml:"audit_storage"` // memory, redis, postgres; defaults to storage
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	MaxCacheEntries int           `yaml:"max_cache_entries"`
	BackoffDuration time.Duration `yaml:"backoff_duration"`
	FlushDelay      time.Duration `yaml:"flush_delay"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	AuditMaxEntries int           `yaml:"audit_max_entries"`
	MetricsPort     int           `yaml:"metrics_port"` // 0 = disabled
	Kafka           KafkaConfig   `yaml:"kafka"`
}

// KafkaConfig enables publishing result broadcasts to a topic.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}
