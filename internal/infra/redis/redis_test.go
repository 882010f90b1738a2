package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/edufilter/internal/core/domain"
)

// newTestClient connects to EDUFILTER_TEST_REDIS_URL under a throwaway key prefix.
func newTestClient(t *testing.T) *Client {
	t.Helper()
	url := os.Getenv("EDUFILTER_TEST_REDIS_URL")
	if url == "" {
		t.Skip("EDUFILTER_TEST_REDIS_URL not set")
	}

	c, err := NewClient(Config{URL: url, KeyPrefix: "edufilter-test-" + uuid.NewString()})
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() {
		ctx := context.Background()
		keys, _ := c.rdb.Keys(ctx, c.prefix+":*").Result()
		if len(keys) > 0 {
			c.rdb.Del(ctx, keys...)
		}
		c.Close()
	})
	return c
}

func TestCacheRepo_EvictsOldest(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	repo := NewCacheRepo(c)
	base := time.UnixMilli(1_700_000_000_000)

	for i, offset := range []int{3, 1, 2} {
		e := &domain.CacheEntry{
			VideoID:  fmt.Sprintf("v%d", i),
			Record:   domain.ClassificationRecord{Label: domain.LabelEducational, Confidence: 0.5, Reason: "r"},
			StoredAt: base.Add(time.Duration(offset) * time.Minute),
		}
		if _, err := repo.Put(ctx, e, 3); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	evicted, err := repo.Put(ctx, &domain.CacheEntry{VideoID: "new", StoredAt: base.Add(time.Hour)}, 3)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if evicted != "v1" {
		t.Errorf("expected v1 evicted, got %q", evicted)
	}
	if n, _ := repo.Count(ctx); n != 3 {
		t.Errorf("expected 3 entries, got %d", n)
	}

	got, err := repo.Get(ctx, "v0")
	if err != nil || got == nil || got.Record.Label != domain.LabelEducational {
		t.Errorf("Get(v0) = %+v, %v", got, err)
	}

	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if n, _ := repo.Count(ctx); n != 0 {
		t.Errorf("expected empty cache after Clear, got %d", n)
	}
}

func TestBackoffAndInstallation(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	backoff := NewBackoffRepo(c)
	at := time.UnixMilli(1_700_000_123_456)
	if err := backoff.SetLastFailure(ctx, at); err != nil {
		t.Fatalf("SetLastFailure failed: %v", err)
	}
	got, ok, err := backoff.LastFailure(ctx)
	if err != nil || !ok || !got.Equal(at) {
		t.Errorf("LastFailure = %v, %v, %v", got, ok, err)
	}
	backoff.ClearFailure(ctx)
	if _, ok, _ := backoff.LastFailure(ctx); ok {
		t.Error("failure not cleared")
	}

	inst := NewInstallationRepo(c)
	first, created, err := inst.InstallationID(ctx)
	if err != nil || !created {
		t.Fatalf("first InstallationID = %q, %v, %v", first, created, err)
	}
	second, created, _ := inst.InstallationID(ctx)
	if created || second != first {
		t.Errorf("installation id changed: %q -> %q", first, second)
	}
}

func TestAuditRepo_Trims(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	repo := NewAuditRepo(c)

	for i := 0; i < 4; i++ {
		repo.Append(ctx, domain.AuditEntry{Message: fmt.Sprintf("m%d", i), Timestamp: time.Now()}, 2)
	}
	entries, err := repo.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 || entries[0].Message != "m3" || entries[1].Message != "m2" {
		t.Errorf("unexpected audit log %+v", entries)
	}
}

func TestRateLimiter(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	l := NewRateLimiter(c, 2, time.Minute)
	fixed := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return fixed }

	for i, want := range []bool{true, true, false} {
		ok, err := l.Allow(ctx, "inst")
		if err != nil {
			t.Fatalf("Allow failed: %v", err)
		}
		if ok != want {
			t.Errorf("request %d: Allow = %v, want %v", i, ok, want)
		}
	}
}
