package agent

import (
	"sync"
	"time"

	"github.com/vietddude/edufilter/internal/core/clock"
	"github.com/vietddude/edufilter/internal/core/domain"
	"github.com/vietddude/edufilter/internal/metrics"
)

// State is the batch queue state.
type State int

const (
	// StateIdle: no flush is scheduled.
	StateIdle State = iota
	// StateArmed: a flush is scheduled and pending items will go with it.
	StateArmed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	default:
		return "unknown"
	}
}

// Queue coalesces cache misses into batches. The first enqueue while idle
// schedules fire after delay; later enqueues join the same batch.
type Queue struct {
	sched clock.Scheduler
	delay time.Duration
	fire  func()

	mu      sync.Mutex
	state   State
	pending map[string]domain.VideoMetadata
	order   []string
	timer   clock.Timer
}

func NewQueue(sched clock.Scheduler, delay time.Duration, fire func()) *Queue {
	return &Queue{
		sched:   sched,
		delay:   delay,
		fire:    fire,
		pending: make(map[string]domain.VideoMetadata),
	}
}

// Enqueue adds or replaces a pending item and reports whether it armed a new flush.
func (q *Queue) Enqueue(videoID string, meta domain.VideoMetadata) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.pending[videoID]; !exists {
		q.order = append(q.order, videoID)
	}
	q.pending[videoID] = meta
	metrics.AgentPending.Set(float64(len(q.pending)))

	if q.state == StateArmed {
		return false
	}
	q.state = StateArmed
	q.timer = q.sched.AfterFunc(q.delay, q.fire)
	return true
}

// Take removes and returns every pending item in arrival order and returns
// the queue to idle, so that enqueues during the following flush arm a new cycle.
func (q *Queue) Take() []domain.VideoRequest {
	q.mu.Lock()
	defer q.mu.Unlock()

	batch := make([]domain.VideoRequest, 0, len(q.order))
	for _, id := range q.order {
		batch = append(batch, domain.VideoRequest{VideoID: id, VideoMetadata: q.pending[id]})
	}

	q.pending = make(map[string]domain.VideoMetadata)
	q.order = nil
	q.state = StateIdle
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	metrics.AgentPending.Set(0)
	return batch
}

// Stop cancels a scheduled flush without discarding pending items.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.state = StateIdle
}

func (q *Queue) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
