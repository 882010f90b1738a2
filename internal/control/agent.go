package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/vietddude/edufilter/internal/agent"
	"github.com/vietddude/edufilter/internal/core/clock"
	"github.com/vietddude/edufilter/internal/core/config"
	"github.com/vietddude/edufilter/internal/core/domain"
	"github.com/vietddude/edufilter/internal/emitter"
	"github.com/vietddude/edufilter/internal/health"
	"github.com/vietddude/edufilter/internal/infra/backend"
)

// Agent is the client-side classification agent application.
type Agent struct {
	stores       *AgentStores
	cache        *agent.Cache
	backoff      *agent.Backoff
	audit        *agent.AuditLog
	pipeline     *agent.Pipeline
	fanout       *emitter.Fanout
	emitter      emitter.Emitter
	out          *emitter.Writer
	healthServer *health.Server
	log          *slog.Logger
}

// AgentStatus is a point-in-time view of agent state.
type AgentStatus struct {
	BackoffActive bool                `json:"backoff_active"`
	BackoffUntil  time.Time           `json:"backoff_until"`
	CacheEntries  int                 `json:"cache_entries"`
	Pending       int                 `json:"pending"`
	QueueState    string              `json:"queue_state"`
	Audit         []domain.AuditEntry `json:"audit"`
}

// NewAgent wires the agent. Broadcasts are written to out as JSON lines
// when out is non-nil, and published to kafka when brokers are configured.
func NewAgent(ctx context.Context, cfg *config.AppConfig, out io.Writer) (*Agent, error) {
	stores, err := OpenAgentStores(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newAgent(cfg, stores, out, clock.Real{})
}

type agentClock interface {
	clock.Clock
	clock.Scheduler
}

func newAgent(cfg *config.AppConfig, stores *AgentStores, out io.Writer, clk agentClock) (*Agent, error) {
	a := &Agent{
		stores: stores,
		fanout: emitter.NewFanout(),
		log:    slog.Default().With("component", "agent"),
	}

	emitters := emitter.Multi{a.fanout}
	if out != nil {
		a.out = emitter.NewWriter(out)
		emitters = append(emitters, a.out)
	}
	if len(cfg.Agent.Kafka.Brokers) > 0 {
		k, err := emitter.NewKafka(cfg.Agent.Kafka.Brokers, cfg.Agent.Kafka.Topic)
		if err != nil {
			stores.Close()
			return nil, err
		}
		emitters = append(emitters, k)
	}
	a.emitter = emitters

	a.cache = agent.NewCache(stores.Cache, clk, cfg.Agent.CacheTTL, cfg.Agent.MaxCacheEntries)
	a.backoff = agent.NewBackoff(stores.Backoff, clk, cfg.Agent.BackoffDuration)
	a.audit = agent.NewAuditLog(stores.Audit, clk, cfg.Agent.AuditMaxEntries)
	a.pipeline = agent.NewPipeline(agent.Config{
		FlushDelay:     cfg.Agent.FlushDelay,
		RequestTimeout: cfg.Agent.RequestTimeout,
	}, agent.Deps{
		Cache:         a.cache,
		Backoff:       a.backoff,
		Audit:         a.audit,
		Backend:       backend.NewClient(cfg.Agent.BackendURL, cfg.Agent.RequestTimeout),
		Emitter:       a.emitter,
		Installations: stores.Installations,
		Scheduler:     clk,
	})

	if cfg.Agent.MetricsPort > 0 {
		a.healthServer = health.NewServer(health.NewMonitor(stores.Checks()...), cfg.Agent.MetricsPort)
	}
	return a, nil
}

// Start loads the installation id and starts background servers.
func (a *Agent) Start(ctx context.Context) error {
	if err := a.pipeline.Init(ctx); err != nil {
		return err
	}

	// Start Health Server
	if a.healthServer != nil {
		go func() {
			if err := a.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("Health server failed", "error", err)
			}
		}()
	}

	// Start DB Metrics Collector
	if db := a.stores.DB(); db != nil {
		db.StartMetricsCollector(ctx)
	}
	return nil
}

// Request answers from the cache or queues the video for the next batch.
func (a *Agent) Request(ctx context.Context, v domain.VideoRequest) (domain.ClassificationRecord, bool) {
	return a.pipeline.Request(ctx, v.VideoID, v.VideoMetadata)
}

// WriteCached writes a cache hit to the output as a single-video broadcast,
// serialized with batch broadcasts. It is a no-op without an output.
func (a *Agent) WriteCached(ctx context.Context, videoID string, rec domain.ClassificationRecord) error {
	if a.out == nil {
		return nil
	}
	return a.out.Emit(ctx, &domain.Broadcast{
		Classifications: map[string]domain.ClassificationRecord{videoID: rec},
	})
}

// Flush sends pending videos now.
func (a *Agent) Flush(ctx context.Context) error {
	return a.pipeline.Flush(ctx)
}

// Subscribe receives every broadcast.
func (a *Agent) Subscribe(buffer int) (<-chan domain.Broadcast, func()) {
	return a.fanout.Subscribe(buffer)
}

// Status reports backoff, cache and queue state plus the newest audit entries.
func (a *Agent) Status(ctx context.Context, auditLimit int) (*AgentStatus, error) {
	return readStatus(ctx, a.cache, a.backoff, a.audit, a.pipeline, auditLimit)
}

func readStatus(ctx context.Context, cache *agent.Cache, backoff *agent.Backoff, audit *agent.AuditLog, pipeline *agent.Pipeline, auditLimit int) (*AgentStatus, error) {
	active, until, err := backoff.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read backoff state: %w", err)
	}
	size, err := cache.Size(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache size: %w", err)
	}
	entries, err := audit.Entries(ctx, auditLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}

	st := &AgentStatus{
		BackoffActive: active,
		CacheEntries:  size,
		QueueState:    agent.StateIdle.String(),
		Audit:         entries,
	}
	if active {
		st.BackoffUntil = until
	}
	if pipeline != nil {
		st.Pending = pipeline.Pending()
		st.QueueState = pipeline.QueueState().String()
	}
	return st, nil
}

// Stop flushes pending videos, then releases every resource.
func (a *Agent) Stop(ctx context.Context) error {
	a.log.Info("Stopping agent...")

	if err := a.pipeline.Flush(ctx); err != nil {
		a.log.Warn("Final flush failed", "error", err)
	}
	a.pipeline.Close()

	var errs []error
	if a.healthServer != nil {
		errs = append(errs, a.healthServer.Stop(ctx))
	}
	errs = append(errs, a.emitter.Close(), a.stores.Close())
	return errors.Join(errs...)
}

// ReadStatus reports persisted agent state without starting an agent.
func ReadStatus(ctx context.Context, cfg *config.AppConfig, auditLimit int) (*AgentStatus, error) {
	stores, err := OpenAgentStores(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer stores.Close()

	clk := clock.Real{}
	return readStatus(ctx,
		agent.NewCache(stores.Cache, clk, cfg.Agent.CacheTTL, cfg.Agent.MaxCacheEntries),
		agent.NewBackoff(stores.Backoff, clk, cfg.Agent.BackoffDuration),
		agent.NewAuditLog(stores.Audit, clk, cfg.Agent.AuditMaxEntries),
		nil, auditLimit)
}

// ResetCache clears the persisted cache and records it in the audit log.
func ResetCache(ctx context.Context, cfg *config.AppConfig) (int, error) {
	stores, err := OpenAgentStores(ctx, cfg)
	if err != nil {
		return 0, err
	}
	defer stores.Close()

	clk := clock.Real{}
	cache := agent.NewCache(stores.Cache, clk, cfg.Agent.CacheTTL, cfg.Agent.MaxCacheEntries)
	n, err := cache.Size(ctx)
	if err != nil {
		return 0, err
	}
	if err := cache.Clear(ctx); err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", err)
	}
	agent.NewAuditLog(stores.Audit, clk, cfg.Agent.AuditMaxEntries).Record(ctx, "Cache cleared (%d entries).", n)
	return n, nil
}
