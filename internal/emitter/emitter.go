package emitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/vietddude/edufilter/internal/core/domain"
)

// Emitter delivers classification broadcasts to consumers.
type Emitter interface {
	// Emit sends a single broadcast
	Emit(ctx context.Context, b *domain.Broadcast) error

	// Close releases the emitter's resources
	Close() error
}

// Writer emits broadcasts as JSON lines.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (e *Writer) Emit(ctx context.Context, b *domain.Broadcast) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write broadcast: %w", err)
	}
	return nil
}

func (e *Writer) Close() error { return nil }

// Multi emits to every inner emitter and joins their errors.
type Multi []Emitter

func (m Multi) Emit(ctx context.Context, b *domain.Broadcast) error {
	var errs []error
	for _, e := range m {
		if err := e.Emit(ctx, b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, e := range m {
		if err := e.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
