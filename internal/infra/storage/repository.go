package storage

import (
	"context"
	"time"

	"github.com/vietddude/edufilter/internal/core/domain"
)

// CacheRepository stores agent-side classification cache entries.
type CacheRepository interface {
	// Get returns the entry for videoID, or nil when absent. Freshness is the
	// caller's concern.
	Get(ctx context.Context, videoID string) (*domain.CacheEntry, error)

	// Put upserts entry. When entry.VideoID is new and the store already
	// holds maxEntries entries, the entry with the oldest StoredAt is evicted
	// in the same atomic step and its id returned. maxEntries <= 0 disables
	// eviction.
	Put(ctx context.Context, entry *domain.CacheEntry, maxEntries int) (evicted string, err error)

	// Delete removes one entry; deleting an absent entry is not an error.
	Delete(ctx context.Context, videoID string) error

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)

	// Clear removes every entry.
	Clear(ctx context.Context) error
}

// BackoffRepository persists the time of the last failed backend call.
type BackoffRepository interface {
	// LastFailure returns the recorded failure time; ok is false when none is recorded.
	LastFailure(ctx context.Context) (at time.Time, ok bool, err error)

	SetLastFailure(ctx context.Context, at time.Time) error

	ClearFailure(ctx context.Context) error
}

// AuditRepository persists the agent audit log, newest entry first.
type AuditRepository interface {
	// Append prepends entry and truncates the log to maxEntries.
	Append(ctx context.Context, entry domain.AuditEntry, maxEntries int) error

	// List returns up to limit entries, newest first. limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]domain.AuditEntry, error)
}

// InstallationRepository hands out the agent installation id.
type InstallationRepository interface {
	// InstallationID returns the stored id, generating and storing one on
	// first use. created reports whether this call generated it.
	InstallationID(ctx context.Context) (id string, created bool, err error)
}

// RateLimiter admits or rejects requests per key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
