package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vietddude/edufilter/internal/core/domain"
)

// BackoffRepo stores lastBackendFailTs as epoch milliseconds.
type BackoffRepo struct {
	c *Client
}

func NewBackoffRepo(client *Client) *BackoffRepo {
	return &BackoffRepo{c: client}
}

func (r *BackoffRepo) LastFailure(ctx context.Context) (time.Time, bool, error) {
	val, err := r.c.rdb.Get(ctx, r.c.backoffKey()).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get failed: %w", err)
	}
	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid backoff timestamp %q: %w", val, err)
	}
	return time.UnixMilli(ms), true, nil
}

func (r *BackoffRepo) SetLastFailure(ctx context.Context, at time.Time) error {
	return r.c.rdb.Set(ctx, r.c.backoffKey(), strconv.FormatInt(at.UnixMilli(), 10), 0).Err()
}

func (r *BackoffRepo) ClearFailure(ctx context.Context) error {
	return r.c.rdb.Del(ctx, r.c.backoffKey()).Err()
}

// AuditRepo keeps the audit log in a list, newest at the head.
type AuditRepo struct {
	c *Client
}

func NewAuditRepo(client *Client) *AuditRepo {
	return &AuditRepo{c: client}
}

func (r *AuditRepo) Append(ctx context.Context, entry domain.AuditEntry, maxEntries int) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	_, err = r.c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, r.c.auditKey(), data)
		if maxEntries > 0 {
			pipe.LTrim(ctx, r.c.auditKey(), 0, int64(maxEntries-1))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("append audit entry failed: %w", err)
	}
	return nil
}

func (r *AuditRepo) List(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	items, err := r.c.rdb.LRange(ctx, r.c.auditKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange failed: %w", err)
	}

	out := make([]domain.AuditEntry, 0, len(items))
	for _, item := range items {
		var e domain.AuditEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal audit entry: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

// InstallationRepo stores the installation id once with SETNX.
type InstallationRepo struct {
	c *Client
}

func NewInstallationRepo(client *Client) *InstallationRepo {
	return &InstallationRepo{c: client}
}

func (r *InstallationRepo) InstallationID(ctx context.Context) (string, bool, error) {
	created, err := r.c.rdb.SetNX(ctx, r.c.installationKey(), uuid.NewString(), 0).Result()
	if err != nil {
		return "", false, fmt.Errorf("setnx failed: %w", err)
	}
	id, err := r.c.rdb.Get(ctx, r.c.installationKey()).Result()
	if err != nil {
		return "", false, fmt.Errorf("get installation id failed: %w", err)
	}
	return id, created, nil
}
