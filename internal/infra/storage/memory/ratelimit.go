package memory

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a fixed-window counter per key, for single-instance servers.
type RateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu     sync.Mutex
	counts map[string]windowCount
}

type windowCount struct {
	start time.Time
	n     int
}

// NewRateLimiter admits limit requests per key per window. limit <= 0 admits everything.
func NewRateLimiter(limit int, window time.Duration, now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		limit:  limit,
		window: window,
		now:    now,
		counts: make(map[string]windowCount),
	}
}

func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}

	start := l.now().Truncate(l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.counts[key]
	if !c.start.Equal(start) {
		// New window; drop counters from past windows while we hold the lock.
		for k, v := range l.counts {
			if v.start.Before(start) {
				delete(l.counts, k)
			}
		}
		c = windowCount{start: start}
	}
	c.n++
	l.counts[key] = c

	return c.n <= l.limit, nil
}
