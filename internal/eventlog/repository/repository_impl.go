package repository

import (
	"context"
	"sync"

	"github.com/smallbiznis/nbaflow/internal/eventlog/domain"
)

type repo struct {
	mu      sync.RWMutex
	entries []domain.Entry
}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Add(_ context.Context, entry domain.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry.Clone())
}

func (r *repo) ListForNBA(_ context.Context, nbaID string) []domain.Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Entry, 0)
	for _, e := range r.entries {
		if e.Touches(nbaID) {
			out = append(out, e.Clone())
		}
	}
	return out
}

func (r *repo) FindActionEvent(_ context.Context, nbaID, status string) (domain.Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.Action != domain.ActionUserAction || e.ActedBy == nil {
			continue
		}
		if e.NBAID != nil && *e.NBAID == nbaID && e.Status == status {
			return e.Clone(), true
		}
	}
	return domain.Entry{}, false
}

// List returns the most recent entries first.
func (r *repo) List(_ context.Context, limit int) []domain.Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 || limit > len(r.entries) {
		limit = len(r.entries)
	}
	out := make([]domain.Entry, 0, limit)
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.entries[i].Clone())
	}
	return out
}

func (r *repo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
