package emitter

import (
	"context"
	"sync"

	"github.com/vietddude/edufilter/internal/core/domain"
)

// Fanout delivers broadcasts to in-process subscribers. A subscriber whose
// buffer is full misses the broadcast rather than blocking the pipeline.
type Fanout struct {
	mu     sync.Mutex
	subs   map[int]chan domain.Broadcast
	nextID int
	closed bool
}

func NewFanout() *Fanout {
	return &Fanout{subs: make(map[int]chan domain.Broadcast)}
}

// Subscribe returns a channel of broadcasts and a function that unsubscribes
// and closes it.
func (f *Fanout) Subscribe(buffer int) (<-chan domain.Broadcast, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan domain.Broadcast, buffer)
	if f.closed {
		close(ch)
		return ch, func() {}
	}

	id := f.nextID
	f.nextID++
	f.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if sub, ok := f.subs[id]; ok {
				delete(f.subs, id)
				close(sub)
			}
		})
	}
}

func (f *Fanout) Emit(ctx context.Context, b *domain.Broadcast) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- *b:
		default:
		}
	}
	return nil
}

func (f *Fanout) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, ch := range f.subs {
		close(ch)
		delete(f.subs, id)
	}
	f.closed = true
	return nil
}
