package postgres

import (
	"context"
	"fmt"

	"github.com/vietddude/edufilter/internal/core/domain"
)

// AuditRepo implements storage.AuditRepository using PostgreSQL.
type AuditRepo struct {
	db *DB
}

// NewAuditRepo creates a new PostgreSQL audit repository.
func NewAuditRepo(db *DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// Append inserts entry and deletes everything beyond the newest maxEntries rows.
func (r *AuditRepo) Append(ctx context.Context, entry domain.AuditEntry, maxEntries int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.NamedExecContext(ctx,
		`INSERT INTO audit_log (message, created_at) VALUES (:message, :created_at)`, entry,
	); err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	if maxEntries > 0 {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM audit_log
			WHERE id NOT IN (
				SELECT id FROM audit_log ORDER BY created_at DESC, id DESC LIMIT $1
			)`, maxEntries,
		); err != nil {
			return fmt.Errorf("failed to trim audit log: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit audit entry: %w", err)
	}
	return nil
}

// List returns entries newest first.
func (r *AuditRepo) List(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	var entries []domain.AuditEntry
	var err error
	if limit > 0 {
		err = r.db.SelectContext(ctx, &entries,
			`SELECT message, created_at FROM audit_log ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	} else {
		err = r.db.SelectContext(ctx, &entries,
			`SELECT message, created_at FROM audit_log ORDER BY created_at DESC, id DESC`)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list audit log: %w", err)
	}
	return entries, nil
}
