package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vietddude/edufilter/internal/core/clock"
	"github.com/vietddude/edufilter/internal/core/domain"
	"github.com/vietddude/edufilter/internal/infra/storage"
)

// DefaultAuditMaxEntries bounds the persisted audit log.
const DefaultAuditMaxEntries = 50

// AuditLog records human-readable agent events, newest first.
type AuditLog struct {
	repo       storage.AuditRepository
	clock      clock.Clock
	maxEntries int
	log        *slog.Logger
}

func NewAuditLog(repo storage.AuditRepository, clk clock.Clock, maxEntries int) *AuditLog {
	if maxEntries <= 0 {
		maxEntries = DefaultAuditMaxEntries
	}
	return &AuditLog{
		repo:       repo,
		clock:      clk,
		maxEntries: maxEntries,
		log:        slog.Default().With("component", "audit"),
	}
}

// Record appends a formatted message. Storage failures are logged, not returned.
func (a *AuditLog) Record(ctx context.Context, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	a.log.Info(msg)

	entry := domain.AuditEntry{Message: msg, Timestamp: a.clock.Now()}
	if err := a.repo.Append(ctx, entry, a.maxEntries); err != nil {
		a.log.Warn("Failed to persist audit entry", "error", err)
	}
}

// Entries returns up to limit entries, newest first.
func (a *AuditLog) Entries(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	return a.repo.List(ctx, limit)
}
