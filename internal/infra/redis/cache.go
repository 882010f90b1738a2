package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/edufilter/internal/core/domain"
)

// putScript evicts the oldest entry when a new id would exceed the limit,
// then stores the entry. The index is a ZSET scored by storedAt in ms.
//
// KEYS[1] index, KEYS[2] entry key
// ARGV[1] video id, ARGV[2] score, ARGV[3] payload, ARGV[4] max entries, ARGV[5] entry key prefix
var putScript = redis.NewScript(`
local evicted = ""
if redis.call("ZSCORE", KEYS[1], ARGV[1]) == false then
	local max = tonumber(ARGV[4])
	if max > 0 and redis.call("ZCARD", KEYS[1]) >= max then
		local oldest = redis.call("ZRANGE", KEYS[1], 0, 0)
		if #oldest > 0 then
			redis.call("ZREM", KEYS[1], oldest[1])
			redis.call("DEL", ARGV[5] .. oldest[1])
			evicted = oldest[1]
		end
	end
end
redis.call("SET", KEYS[2], ARGV[3])
redis.call("ZADD", KEYS[1], ARGV[2], ARGV[1])
return evicted
`)

// CacheRepo implements storage.CacheRepository using Redis.
type CacheRepo struct {
	c *Client
}

// NewCacheRepo creates a new Redis-backed cache repository.
func NewCacheRepo(client *Client) *CacheRepo {
	return &CacheRepo{c: client}
}

func (r *CacheRepo) Get(ctx context.Context, videoID string) (*domain.CacheEntry, error) {
	data, err := r.c.rdb.Get(ctx, r.c.cacheEntryKey(videoID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cache entry failed: %w", err)
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}
	return &entry, nil
}

func (r *CacheRepo) Put(ctx context.Context, entry *domain.CacheEntry, maxEntries int) (string, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	evicted, err := putScript.Run(ctx, r.c.rdb,
		[]string{r.c.cacheIndexKey(), r.c.cacheEntryKey(entry.VideoID)},
		entry.VideoID, entry.StoredAt.UnixMilli(), data, maxEntries, r.c.cacheEntryPrefix(),
	).Text()
	if err != nil {
		return "", fmt.Errorf("cache put script failed: %w", err)
	}
	return evicted, nil
}

func (r *CacheRepo) Delete(ctx context.Context, videoID string) error {
	_, err := r.c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, r.c.cacheIndexKey(), videoID)
		pipe.Del(ctx, r.c.cacheEntryKey(videoID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete cache entry failed: %w", err)
	}
	return nil
}

func (r *CacheRepo) Count(ctx context.Context) (int, error) {
	n, err := r.c.rdb.ZCard(ctx, r.c.cacheIndexKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("zcard failed: %w", err)
	}
	return int(n), nil
}

func (r *CacheRepo) Clear(ctx context.Context) error {
	ids, err := r.c.rdb.ZRange(ctx, r.c.cacheIndexKey(), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("zrange failed: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, r.c.cacheEntryKey(id))
	}
	keys = append(keys, r.c.cacheIndexKey())

	if err := r.c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clear cache failed: %w", err)
	}
	return nil
}
