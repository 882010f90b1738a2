package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/edufilter/internal/core/clock"
	"github.com/vietddude/edufilter/internal/infra/storage"
	"github.com/vietddude/edufilter/internal/metrics"
)

// DefaultBackoffDuration is how long flushes are suppressed after a failed backend call.
const DefaultBackoffDuration = 5 * time.Minute

// Backoff suppresses backend calls for a fixed window after a failure.
type Backoff struct {
	repo     storage.BackoffRepository
	clock    clock.Clock
	duration time.Duration
	log      *slog.Logger
}

func NewBackoff(repo storage.BackoffRepository, clk clock.Clock, duration time.Duration) *Backoff {
	if duration <= 0 {
		duration = DefaultBackoffDuration
	}
	return &Backoff{
		repo:     repo,
		clock:    clk,
		duration: duration,
		log:      slog.Default().With("component", "backoff"),
	}
}

// Allowed reports whether a backend call may be made now. If the state
// cannot be read the call is allowed.
func (b *Backoff) Allowed(ctx context.Context) bool {
	active, _, err := b.Status(ctx)
	if err != nil {
		b.log.Warn("Failed to read backoff state", "error", err)
		return true
	}
	return !active
}

// Status reports whether backoff is active and when it ends.
func (b *Backoff) Status(ctx context.Context) (active bool, until time.Time, err error) {
	last, ok, err := b.repo.LastFailure(ctx)
	if err != nil {
		return false, time.Time{}, err
	}
	if !ok {
		metrics.AgentBackoffActive.Set(0)
		return false, time.Time{}, nil
	}
	until = last.Add(b.duration)
	active = b.clock.Now().Before(until)
	if active {
		metrics.AgentBackoffActive.Set(1)
	} else {
		metrics.AgentBackoffActive.Set(0)
	}
	return active, until, nil
}

// RecordFailure starts a new backoff window at the current time.
func (b *Backoff) RecordFailure(ctx context.Context) {
	if err := b.repo.SetLastFailure(ctx, b.clock.Now()); err != nil {
		b.log.Warn("Failed to record backend failure", "error", err)
	}
	metrics.AgentBackoffActive.Set(1)
}

// RecordSuccess clears any recorded failure.
func (b *Backoff) RecordSuccess(ctx context.Context) {
	if err := b.repo.ClearFailure(ctx); err != nil {
		b.log.Warn("Failed to clear backend failure", "error", err)
	}
	metrics.AgentBackoffActive.Set(0)
}
