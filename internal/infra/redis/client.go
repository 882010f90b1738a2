package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "edufilter"

// Client wraps Redis operations for agent state and server rate limiting.
type Client struct {
	rdb    *redis.Client
	prefix string
}

// Config holds Redis connection configuration.
type Config struct {
	URL       string `yaml:"url"`
	Password  string `yaml:"password"`
	KeyPrefix string `yaml:"key_prefix"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}

	return &Client{rdb: rdb, prefix: prefix}, nil
}

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Key helpers
func (c *Client) cacheIndexKey() string {
	return c.prefix + ":cache:index"
}

func (c *Client) cacheEntryPrefix() string {
	return c.prefix + ":cache:entry:"
}

func (c *Client) cacheEntryKey(videoID string) string {
	return c.cacheEntryPrefix() + videoID
}

func (c *Client) backoffKey() string {
	return c.prefix + ":lastBackendFailTs"
}

func (c *Client) auditKey() string {
	return c.prefix + ":auditLog"
}

func (c *Client) installationKey() string {
	return c.prefix + ":installationId"
}

func (c *Client) rateLimitKey(key string, window int64) string {
	return fmt.Sprintf("%s:ratelimit:%s:%d", c.prefix, key, window)
}
