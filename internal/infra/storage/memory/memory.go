package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/edufilter/internal/core/domain"
)

// MemoryStorage keeps agent state for the lifetime of the process.
type MemoryStorage struct {
	cache          map[string]domain.CacheEntry
	lastFailure    *time.Time
	audit          []domain.AuditEntry
	installationID string
	mu             sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		cache: make(map[string]domain.CacheEntry),
	}
}

// -----------------------------------------------------------------------------
// Cache Repository
// -----------------------------------------------------------------------------

type CacheRepo struct {
	store *MemoryStorage
}

func NewCacheRepo(store *MemoryStorage) *CacheRepo {
	return &CacheRepo{store: store}
}

func (r *CacheRepo) Get(ctx context.Context, videoID string) (*domain.CacheEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	entry, ok := r.store.cache[videoID]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (r *CacheRepo) Put(ctx context.Context, entry *domain.CacheEntry, maxEntries int) (string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var evicted string
	if _, exists := r.store.cache[entry.VideoID]; !exists && maxEntries > 0 && len(r.store.cache) >= maxEntries {
		var oldest time.Time
		for id, e := range r.store.cache {
			if evicted == "" || e.StoredAt.Before(oldest) {
				evicted, oldest = id, e.StoredAt
			}
		}
		delete(r.store.cache, evicted)
	}

	r.store.cache[entry.VideoID] = *entry
	return evicted, nil
}

func (r *CacheRepo) Delete(ctx context.Context, videoID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.cache, videoID)
	return nil
}

func (r *CacheRepo) Count(ctx context.Context) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return len(r.store.cache), nil
}

func (r *CacheRepo) Clear(ctx context.Context) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.cache = make(map[string]domain.CacheEntry)
	return nil
}

// -----------------------------------------------------------------------------
// Backoff Repository
// -----------------------------------------------------------------------------

type BackoffRepo struct {
	store *MemoryStorage
}

func NewBackoffRepo(store *MemoryStorage) *BackoffRepo {
	return &BackoffRepo{store: store}
}

func (r *BackoffRepo) LastFailure(ctx context.Context) (time.Time, bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if r.store.lastFailure == nil {
		return time.Time{}, false, nil
	}
	return *r.store.lastFailure, true, nil
}

func (r *BackoffRepo) SetLastFailure(ctx context.Context, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.lastFailure = &at
	return nil
}

func (r *BackoffRepo) ClearFailure(ctx context.Context) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.lastFailure = nil
	return nil
}

// -----------------------------------------------------------------------------
// Audit Repository
// -----------------------------------------------------------------------------

type AuditRepo struct {
	store *MemoryStorage
}

func NewAuditRepo(store *MemoryStorage) *AuditRepo {
	return &AuditRepo{store: store}
}

func (r *AuditRepo) Append(ctx context.Context, entry domain.AuditEntry, maxEntries int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.audit = append([]domain.AuditEntry{entry}, r.store.audit...)
	if maxEntries > 0 && len(r.store.audit) > maxEntries {
		r.store.audit = r.store.audit[:maxEntries]
	}
	return nil
}

func (r *AuditRepo) List(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	n := len(r.store.audit)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.AuditEntry, n)
	copy(out, r.store.audit[:n])
	return out, nil
}

// -----------------------------------------------------------------------------
// Installation Repository
// -----------------------------------------------------------------------------

type InstallationRepo struct {
	store *MemoryStorage
}

func NewInstallationRepo(store *MemoryStorage) *InstallationRepo {
	return &InstallationRepo{store: store}
}

func (r *InstallationRepo) InstallationID(ctx context.Context) (string, bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.installationID != "" {
		return r.store.installationID, false, nil
	}
	r.store.installationID = uuid.NewString()
	return r.store.installationID, true, nil
}
