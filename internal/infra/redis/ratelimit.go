package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window counter shared by every server instance.
type RateLimiter struct {
	c      *Client
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRateLimiter admits limit requests per key per window. limit <= 0 admits everything.
func NewRateLimiter(client *Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{c: client, limit: limit, window: window, now: time.Now}
}

func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}

	bucket := l.now().UnixNano() / int64(l.window)
	k := l.c.rateLimitKey(key, bucket)

	var incr *redis.IntCmd
	_, err := l.c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.Expire(ctx, k, l.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rate limit incr failed: %w", err)
	}

	return incr.Val() <= int64(l.limit), nil
}
