package processed

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/smallbiznis/nbaflow/internal/cache"
	"github.com/smallbiznis/nbaflow/internal/calculation/domain"
	"github.com/smallbiznis/nbaflow/internal/clock"
)

const sweepEvery = 1024

type memoryStore struct {
	entries cache.Cache[string, struct{}]
	ttl     time.Duration
	marks   atomic.Uint64
}

// NewMemoryStore keeps processed ids for ttl; ttl <= 0 keeps them forever.
func NewMemoryStore(ttl time.Duration, clk clock.Clock) domain.ProcessedStore {
	return &memoryStore{
		entries: cache.NewTTLCacheWithClock[string, struct{}](clk),
		ttl:     ttl,
	}
}

func (s *memoryStore) IsProcessed(_ context.Context, eventID string) (bool, error) {
	_, ok := s.entries.Get(strings.TrimSpace(eventID))
	return ok, nil
}

func (s *memoryStore) MarkProcessed(_ context.Context, eventID string) error {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return nil
	}
	s.entries.Set(eventID, struct{}{}, s.ttl)
	if s.marks.Add(1)%sweepEvery == 0 {
		s.entries.DeleteExpired()
	}
	return nil
}
