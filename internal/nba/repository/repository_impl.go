package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nbaflow/internal/nba/domain"
	"github.com/smallbiznis/nbaflow/pkg/db/pagination"
)

const idPrefix = "nba_"

type entry struct {
	seq uint64
	rec domain.NBA
}

// repo keeps NBA records in memory behind a single RWMutex. Writes run inside
// Transaction, which holds the write lock for the whole callback.
type repo struct {
	mu      sync.RWMutex
	genID   *snowflake.Node
	seq     uint64
	byID    map[string]*entry
	order   []*entry
	byEvent map[string]string
}

func Provide(genID *snowflake.Node) domain.Repository {
	return &repo{
		genID:   genID,
		byID:    map[string]*entry{},
		byEvent: map[string]string{},
	}
}

func (r *repo) Get(_ context.Context, id string) (*domain.NBA, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byID[strings.TrimSpace(id)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	rec := e.rec.Clone()
	return &rec, nil
}

func (r *repo) Find(_ context.Context, filter domain.FindFilter) ([]domain.NBA, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.matching(filter), nil
}

func (r *repo) List(_ context.Context, filter domain.ListFilter) ([]domain.NBA, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	page, info := pagination.Window(r.matching(filter.FindFilter), pagination.Pagination{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
	return page, info.Total, nil
}

// matching returns active records newest first; callers hold at least the read lock.
func (r *repo) matching(filter domain.FindFilter) []domain.NBA {
	hits := make([]*entry, 0)
	for _, e := range r.order {
		if filter.Matches(e.rec) {
			hits = append(hits, e)
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if !hits[i].rec.CreatedAt.Equal(hits[j].rec.CreatedAt) {
			return hits[i].rec.CreatedAt.After(hits[j].rec.CreatedAt)
		}
		return hits[i].seq > hits[j].seq
	})

	out := make([]domain.NBA, 0, len(hits))
	for _, e := range hits {
		out = append(out, e.rec.Clone())
	}
	return out
}

func (r *repo) Transaction(ctx context.Context, fn func(tx domain.Writer) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &writer{repo: r, before: map[string]*domain.NBA{}}
	defer func() {
		if p := recover(); p != nil {
			tx.rollback()
			panic(p)
		}
		if err != nil {
			tx.rollback()
		}
	}()

	return fn(tx)
}

// writer records the pre-transaction state of every touched record so a
// failed callback leaves the repository unchanged.
type writer struct {
	repo     *repo
	before   map[string]*domain.NBA
	inserted []string
	events   []string
}

func (w *writer) Get(id string) (domain.NBA, bool) {
	e, ok := w.repo.byID[strings.TrimSpace(id)]
	if !ok {
		return domain.NBA{}, false
	}
	return e.rec.Clone(), true
}

func (w *writer) UpsertFromCalculationEvent(event domain.CalculationEvent, priority int, at time.Time) (domain.NBA, bool, error) {
	definitionID := strings.TrimSpace(event.NBADefinitionID)
	if definitionID == "" {
		return domain.NBA{}, false, fmt.Errorf("upsert nba: %w", domain.ErrInvalidID)
	}
	if existingID, ok := w.repo.byEvent[event.EventID]; ok && event.EventID != "" {
		if e, ok := w.repo.byID[existingID]; ok {
			return e.rec.Clone(), false, nil
		}
	}

	at = at.UTC()
	rec := domain.NBA{
		ID:               idPrefix + w.repo.genID.Generate().String(),
		NBADefinitionID:  definitionID,
		EnterpriseNumber: domain.NormalizeOptional(event.EnterpriseNumber),
		AccountID:        domain.NormalizeOptional(event.AccountID),
		ContactID:        domain.NormalizeOptional(event.ContactID),
		Active:           true,
		Status:           domain.StatusNew,
		Priority:         priority,
		Source:           strings.TrimSpace(event.Source),
		EventID:          event.EventID,
		Context:          domain.CloneContext(event.Context),
		CreatedAt:        at,
		UpdatedAt:        at,
	}

	w.repo.seq++
	e := &entry{seq: w.repo.seq, rec: rec}
	w.repo.byID[rec.ID] = e
	w.repo.order = append(w.repo.order, e)
	w.inserted = append(w.inserted, rec.ID)
	if event.EventID != "" {
		w.repo.byEvent[event.EventID] = rec.ID
		w.events = append(w.events, event.EventID)
	}
	return rec.Clone(), true, nil
}

func (w *writer) DeactivateOtherActiveNewForScope(scope domain.Scope, keepID string, at time.Time) ([]string, error) {
	affected := make([]string, 0)
	for _, e := range w.repo.order {
		if e.rec.ID == keepID || !e.rec.Active || e.rec.Status != domain.StatusNew {
			continue
		}
		if !scope.Matches(e.rec) {
			continue
		}
		w.deactivate(e, at)
		affected = append(affected, e.rec.ID)
	}
	return affected, nil
}

func (w *writer) DeactivateNBAsByIDs(ids []string, at time.Time) ([]string, error) {
	seen := make(map[string]struct{}, len(ids))
	affected := make([]string, 0, len(ids))
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		e, ok := w.repo.byID[id]
		if !ok || !e.rec.Active {
			continue
		}
		w.deactivate(e, at)
		affected = append(affected, id)
	}
	return affected, nil
}

func (w *writer) UpdateStatus(id string, status domain.Status, at time.Time) (domain.NBA, error) {
	if !status.Valid() {
		return domain.NBA{}, domain.ErrInvalidStatus
	}
	e, ok := w.repo.byID[strings.TrimSpace(id)]
	if !ok {
		return domain.NBA{}, domain.ErrNotFound
	}
	w.remember(e)
	e.rec.Status = status
	e.rec.UpdatedAt = at.UTC()
	return e.rec.Clone(), nil
}

func (w *writer) deactivate(e *entry, at time.Time) {
	w.remember(e)
	e.rec.Active = false
	e.rec.UpdatedAt = at.UTC()
}

func (w *writer) remember(e *entry) {
	if _, ok := w.before[e.rec.ID]; ok {
		return
	}
	prev := e.rec.Clone()
	w.before[e.rec.ID] = &prev
}

func (w *writer) rollback() {
	for id, prev := range w.before {
		if e, ok := w.repo.byID[id]; ok {
			e.rec = *prev
		}
	}
	for _, eventID := range w.events {
		delete(w.repo.byEvent, eventID)
	}
	if len(w.inserted) == 0 {
		return
	}
	removed := make(map[string]struct{}, len(w.inserted))
	for _, id := range w.inserted {
		removed[id] = struct{}{}
		delete(w.repo.byID, id)
	}
	kept := w.repo.order[:0]
	for _, e := range w.repo.order {
		if _, gone := removed[e.rec.ID]; !gone {
			kept = append(kept, e)
		}
	}
	w.repo.order = kept
}
