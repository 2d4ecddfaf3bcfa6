package domain

import (
	"time"

	"gorm.io/datatypes"
)

type Action string

const (
	ActionCreated                   Action = "created"
	ActionCreatedAndSupersededPrior Action = "created_and_superseded_prior"
	ActionDeactivatedOnly           Action = "deactivated_only"
	ActionDuplicateSkipped          Action = "duplicate_skipped"
	ActionFailed                    Action = "failed"
	ActionUserAction                Action = "user_action"
)

// Entry is an immutable audit record of one processing outcome or user action.
type Entry struct {
	ID            string            `json:"id"`
	EventID       string            `json:"event_id,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Action        Action            `json:"action"`
	NBAID         *string           `json:"nba_id,omitempty"`
	AffectedIDs   []string          `json:"affected_ids"`
	Status        string            `json:"status"`
	Source        string            `json:"source,omitempty"`
	Context       datatypes.JSONMap `json:"context"`
	ActedBy       *string           `json:"acted_by,omitempty"`
	ActionAt      time.Time         `json:"action_at"`
	CreatedAt     time.Time         `json:"created_at"`
}

// Touches reports whether the entry concerns nbaID directly or as an affected record.
func (e Entry) Touches(nbaID string) bool {
	if e.NBAID != nil && *e.NBAID == nbaID {
		return true
	}
	for _, id := range e.AffectedIDs {
		if id == nbaID {
			return true
		}
	}
	return false
}

// Clone returns a copy sharing no mutable state with e.
func (e Entry) Clone() Entry {
	if e.NBAID != nil {
		id := *e.NBAID
		e.NBAID = &id
	}
	if e.ActedBy != nil {
		by := *e.ActedBy
		e.ActedBy = &by
	}
	e.AffectedIDs = append([]string{}, e.AffectedIDs...)
	ctx := datatypes.JSONMap{}
	for k, v := range e.Context {
		ctx[k] = v
	}
	e.Context = ctx
	return e
}
