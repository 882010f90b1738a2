// Package agent is the client-side classification agent: it answers from
// its cache, coalesces misses into batches, and calls the classification
// server unless a recent failure put it into backoff.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/vietddude/edufilter/internal/core/clock"
	"github.com/vietddude/edufilter/internal/core/domain"
	"github.com/vietddude/edufilter/internal/emitter"
	"github.com/vietddude/edufilter/internal/infra/storage"
	"github.com/vietddude/edufilter/internal/metrics"
)

// ErrBackingOff is returned by Flush when the batch was dropped because the
// backend is in its backoff window.
var ErrBackingOff = errors.New("backend is in backoff period")

// Backend classifies a batch on the server.
type Backend interface {
	Classify(ctx context.Context, req domain.ClassifyRequest) (map[string]domain.ClassificationRecord, error)
}

// Config tunes the pipeline.
type Config struct {
	FlushDelay     time.Duration // zero flushes on the next scheduler tick
	RequestTimeout time.Duration
}

// Deps are the pipeline collaborators.
type Deps struct {
	Cache         *Cache
	Backoff       *Backoff
	Audit         *AuditLog
	Backend       Backend
	Emitter       emitter.Emitter
	Installations storage.InstallationRepository
	Scheduler     clock.Scheduler
}

// Pipeline ties cache, queue, backoff and backend together. Flushes are
// serialized; items that arrive during a flush go into the next batch.
type Pipeline struct {
	cache    *Cache
	backoff  *Backoff
	audit    *AuditLog
	backend  Backend
	emitter  emitter.Emitter
	queue    *Queue
	installs storage.InstallationRepository

	requestTimeout time.Duration

	flushMu        sync.Mutex
	installMu      sync.Mutex
	installationID string

	ctx    context.Context
	cancel context.CancelFunc
	log    *slog.Logger
}

func NewPipeline(cfg Config, deps Deps) *Pipeline {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		cache:          deps.Cache,
		backoff:        deps.Backoff,
		audit:          deps.Audit,
		backend:        deps.Backend,
		emitter:        deps.Emitter,
		installs:       deps.Installations,
		requestTimeout: cfg.RequestTimeout,
		ctx:            ctx,
		cancel:         cancel,
		log:            slog.Default().With("component", "pipeline"),
	}
	p.queue = NewQueue(deps.Scheduler, cfg.FlushDelay, p.scheduledFlush)
	return p
}

// Init loads or creates the installation id.
func (p *Pipeline) Init(ctx context.Context) error {
	_, err := p.installation(ctx)
	return err
}

func (p *Pipeline) installation(ctx context.Context) (string, error) {
	p.installMu.Lock()
	defer p.installMu.Unlock()
	if p.installationID != "" {
		return p.installationID, nil
	}

	id, created, err := p.installs.InstallationID(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load installation id: %w", err)
	}
	if created {
		p.audit.Record(ctx, "Agent installed. Installation ID: %s", id)
	}
	p.installationID = id
	return id, nil
}

// Request returns the cached record for a fresh hit. Otherwise the video is
// queued and its result will arrive through the emitter.
func (p *Pipeline) Request(ctx context.Context, videoID string, meta domain.VideoMetadata) (domain.ClassificationRecord, bool) {
	if rec, ok := p.cache.Get(ctx, videoID); ok {
		p.audit.Record(ctx, "Returning cached classification for video %s: %s", videoID, rec.Label)
		return rec, true
	}

	if p.queue.Enqueue(videoID, meta) {
		p.log.Debug("Armed batch flush", "videoId", videoID)
	}
	return domain.ClassificationRecord{}, false
}

// QueueState reports whether a flush is scheduled.
func (p *Pipeline) QueueState() State {
	return p.queue.State()
}

// Pending returns the number of queued videos.
func (p *Pipeline) Pending() int {
	return p.queue.Len()
}

func (p *Pipeline) scheduledFlush() {
	if err := p.Flush(p.ctx); err != nil && !errors.Is(err, ErrBackingOff) {
		p.log.Warn("Scheduled flush failed", "error", err)
	}
}

// Flush sends every pending video in one batch. The batch is dropped, not
// retried, when backoff is active or the call fails.
func (p *Pipeline) Flush(ctx context.Context) error {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	batch := p.queue.Take()
	if len(batch) == 0 {
		return nil
	}

	if !p.backoff.Allowed(ctx) {
		for _, v := range batch {
			p.audit.Record(ctx, "Backend is in backoff period. Skipping classification for videoId: %s", v.VideoID)
		}
		metrics.AgentFlushesTotal.WithLabelValues("backoff").Inc()
		return ErrBackingOff
	}

	// The batch still goes out without an id; the server treats it as optional.
	installID, err := p.installation(ctx)
	if err != nil {
		p.log.Warn("Sending batch without installation id", "error", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.requestTimeout)
	results, err := p.backend.Classify(callCtx, domain.ClassifyRequest{Videos: batch, InstallationID: installID})
	cancel()

	if err != nil {
		p.backoff.RecordFailure(ctx)
		for _, v := range batch {
			p.audit.Record(ctx, "Failed to classify video %s. Error: %v", v.VideoID, err)
		}
		metrics.AgentFlushesTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("classify batch of %d: %w", len(batch), err)
	}

	p.backoff.RecordSuccess(ctx)
	metrics.AgentFlushesTotal.WithLabelValues("success").Inc()

	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		rec := results[id]
		if err := p.cache.Put(ctx, id, rec); err != nil {
			p.log.Warn("Failed to cache classification", "videoId", id, "error", err)
		}
		p.audit.Record(ctx, "Successfully classified video %s as %s", id, rec.Label)
	}

	if p.emitter != nil {
		if err := p.emitter.Emit(ctx, &domain.Broadcast{Classifications: results}); err != nil {
			p.log.Warn("Failed to broadcast classifications", "error", err)
		}
	}
	return nil
}

// Close cancels a scheduled flush. Pending videos are kept; call Flush
// first to send them.
func (p *Pipeline) Close() {
	p.queue.Stop()
	p.cancel()
}
