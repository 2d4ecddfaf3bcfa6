package liveoutcomes

import (
	"errors"
	"sync"

	calcdomain "github.com/smallbiznis/nbaflow/internal/calculation/domain"
)

const (
	DefaultBufferSize       = 50
	DefaultSubscriberBuffer = 16
)

var ErrHubUnavailable = errors.New("hub_unavailable")

// Hub fans worker outcomes out to live subscribers. Slow subscribers miss
// events rather than blocking the worker.
type Hub struct {
	mu               sync.Mutex
	buffer           []calcdomain.Outcome
	subs             map[uint64]chan calcdomain.Outcome
	nextID           uint64
	bufferSize       int
	subscriberBuffer int
}

type Subscription struct {
	hub  *Hub
	id   uint64
	ch   chan calcdomain.Outcome
	once sync.Once
}

func NewHub() *Hub {
	return &Hub{
		subs:             make(map[uint64]chan calcdomain.Outcome),
		bufferSize:       DefaultBufferSize,
		subscriberBuffer: DefaultSubscriberBuffer,
	}
}

func (h *Hub) Publish(outcome calcdomain.Outcome) {
	if h == nil {
		return
	}

	h.mu.Lock()
	h.buffer = append(h.buffer, outcome)
	if len(h.buffer) > h.bufferSize {
		h.buffer = h.buffer[len(h.buffer)-h.bufferSize:]
	}
	subs := make([]chan calcdomain.Outcome, 0, len(h.subs))
	for _, ch := range h.subs {
		subs = append(subs, ch)
	}
	h.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- outcome:
		default:
		}
	}
}

// Subscribe registers a listener and returns the recent backlog.
func (h *Hub) Subscribe() (*Subscription, []calcdomain.Outcome, error) {
	if h == nil {
		return nil, nil, ErrHubUnavailable
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan calcdomain.Outcome, h.subscriberBuffer)
	h.subs[id] = ch
	backlog := append([]calcdomain.Outcome(nil), h.buffer...)

	return &Subscription{hub: h, id: id, ch: ch}, backlog, nil
}

func (h *Hub) Subscribers() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) unsubscribe(id uint64) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

func (s *Subscription) Events() <-chan calcdomain.Outcome {
	if s == nil {
		return nil
	}
	return s.ch
}

func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.once.Do(func() {
		s.hub.unsubscribe(s.id)
	})
}
