package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/edufilter/internal/core/clock"
	"github.com/vietddude/edufilter/internal/core/domain"
	"github.com/vietddude/edufilter/internal/infra/storage"
	"github.com/vietddude/edufilter/internal/metrics"
)

const (
	DefaultCacheTTL        = 24 * time.Hour
	DefaultMaxCacheEntries = 100
)

// Cache is the agent's TTL- and size-bounded classification cache.
// Expired entries are only removed when a lookup finds them.
type Cache struct {
	repo       storage.CacheRepository
	clock      clock.Clock
	ttl        time.Duration
	maxEntries int
	log        *slog.Logger
}

func NewCache(repo storage.CacheRepository, clk clock.Clock, ttl time.Duration, maxEntries int) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxCacheEntries
	}
	return &Cache{
		repo:       repo,
		clock:      clk,
		ttl:        ttl,
		maxEntries: maxEntries,
		log:        slog.Default().With("component", "cache"),
	}
}

// Get returns the cached record for videoID if it is younger than the TTL.
// A storage error is treated as a miss.
func (c *Cache) Get(ctx context.Context, videoID string) (domain.ClassificationRecord, bool) {
	entry, err := c.repo.Get(ctx, videoID)
	if err != nil {
		c.log.Warn("Cache lookup failed", "videoId", videoID, "error", err)
		metrics.AgentCacheLookups.WithLabelValues("error").Inc()
		return domain.ClassificationRecord{}, false
	}
	if entry == nil {
		metrics.AgentCacheLookups.WithLabelValues("miss").Inc()
		return domain.ClassificationRecord{}, false
	}
	if !entry.FreshAt(c.clock.Now(), c.ttl) {
		metrics.AgentCacheLookups.WithLabelValues("expired").Inc()
		if err := c.repo.Delete(ctx, videoID); err != nil {
			c.log.Warn("Failed to drop expired cache entry", "videoId", videoID, "error", err)
		}
		return domain.ClassificationRecord{}, false
	}

	metrics.AgentCacheLookups.WithLabelValues("hit").Inc()
	return entry.Record, true
}

// Put stores rec for videoID, evicting the oldest entry when the cache is full.
func (c *Cache) Put(ctx context.Context, videoID string, rec domain.ClassificationRecord) error {
	evicted, err := c.repo.Put(ctx, &domain.CacheEntry{
		VideoID:  videoID,
		Record:   rec,
		StoredAt: c.clock.Now(),
	}, c.maxEntries)
	if err != nil {
		return err
	}
	if evicted != "" {
		metrics.AgentCacheEvictions.Inc()
		c.log.Debug("Pruned oldest cache entry", "videoId", evicted)
	}
	return nil
}

func (c *Cache) Size(ctx context.Context) (int, error) {
	return c.repo.Count(ctx)
}

func (c *Cache) Clear(ctx context.Context) error {
	return c.repo.Clear(ctx)
}
