package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	nbadomain "github.com/smallbiznis/nbaflow/internal/nba/domain"
)

var (
	ErrQueueFull   = errors.New("queue_full")
	ErrQueueClosed = errors.New("queue_closed")
)

// Envelope is the unit handed from intake to the worker.
type Envelope struct {
	Event         nbadomain.CalculationEvent
	CorrelationID string
	EnqueuedAt    time.Time
	Enriched      bool
}

type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

type Consumer interface {
	Consume(ctx context.Context) (Envelope, error)
	TryConsume() (Envelope, bool)
	Len() int
}

// Queue is a single-topic FIFO. It is bounded when capacity > 0.
type Queue struct {
	mu       sync.Mutex
	items    []Envelope
	capacity int
	closed   bool
	signal   chan struct{}
	done     chan struct{}
}

func New(capacity int) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue{
		items:    make([]Envelope, 0, 64),
		capacity: capacity,
		signal:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Publish enqueues env without blocking on the consumer.
func (q *Queue) Publish(ctx context.Context, env Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if q.capacity > 0 && len(q.items) >= q.capacity {
		return ErrQueueFull
	}
	if env.EnqueuedAt.IsZero() {
		env.EnqueuedAt = time.Now().UTC()
	}
	q.items = append(q.items, env)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return nil
}

// Consume blocks until an envelope is available, ctx is done, or the queue is closed.
func (q *Queue) Consume(ctx context.Context) (Envelope, error) {
	for {
		if env, ok := q.TryConsume(); ok {
			return env, nil
		}

		q.mu.Lock()
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return Envelope{}, ErrQueueClosed
		}

		select {
		case <-ctx.Done():
			return Envelope{}, ctx.Err()
		case <-q.done:
		case <-q.signal:
		}
	}
}

func (q *Queue) TryConsume() (Envelope, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Envelope{}, false
	}
	env := q.items[0]
	q.items[0] = Envelope{}
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return env, true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) Capacity() int {
	return q.capacity
}

// Close stops intake and discards anything still queued, returning how many
// envelopes were dropped. Subsequent calls return 0.
func (q *Queue) Close() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return 0
	}
	q.closed = true
	discarded := len(q.items)
	q.items = nil
	close(q.done)
	return discarded
}
