package control

import (
	"context"
	"errors"
	"fmt"

	"github.com/vietddude/edufilter/internal/core/config"
	"github.com/vietddude/edufilter/internal/health"
	redisclient "github.com/vietddude/edufilter/internal/infra/redis"
	"github.com/vietddude/edufilter/internal/infra/storage"
	"github.com/vietddude/edufilter/internal/infra/storage/memory"
	"github.com/vietddude/edufilter/internal/infra/storage/postgres"
)

// AgentStores holds the repositories backing agent state, selected by
// agent.storage and agent.audit_storage.
type AgentStores struct {
	Cache         storage.CacheRepository
	Backoff       storage.BackoffRepository
	Audit         storage.AuditRepository
	Installations storage.InstallationRepository

	redis *redisclient.Client
	db    *postgres.DB
}

// OpenAgentStores connects the configured backends.
func OpenAgentStores(ctx context.Context, cfg *config.AppConfig) (*AgentStores, error) {
	s := &AgentStores{}
	mem := memory.NewMemoryStorage()

	needsRedis := cfg.Agent.Storage == "redis" || cfg.Agent.AuditStorage == "redis"
	if needsRedis {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		s.redis = client
	}

	switch cfg.Agent.Storage {
	case "redis":
		s.Cache = redisclient.NewCacheRepo(s.redis)
		s.Backoff = redisclient.NewBackoffRepo(s.redis)
		s.Installations = redisclient.NewInstallationRepo(s.redis)
	default:
		s.Cache = memory.NewCacheRepo(mem)
		s.Backoff = memory.NewBackoffRepo(mem)
		s.Installations = memory.NewInstallationRepo(mem)
	}

	switch cfg.Agent.AuditStorage {
	case "redis":
		s.Audit = redisclient.NewAuditRepo(s.redis)
	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			s.Close()
			return nil, err
		}
		s.db = db
		s.Audit = postgres.NewAuditRepo(db)
	default:
		s.Audit = memory.NewAuditRepo(mem)
	}

	return s, nil
}

// Checks returns health checks for the connected backends.
func (s *AgentStores) Checks() []health.Check {
	var checks []health.Check
	if s.redis != nil {
		checks = append(checks, health.Check{Name: "redis", Critical: true, Probe: s.redis.Ping})
	}
	if s.db != nil {
		checks = append(checks, health.Check{Name: "database", Probe: s.db.Health})
	}
	return checks
}

// DB returns the audit database, or nil when postgres is not in use.
func (s *AgentStores) DB() *postgres.DB {
	return s.db
}

// Close closes every backend connection.
func (s *AgentStores) Close() error {
	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	return errors.Join(errs...)
}
