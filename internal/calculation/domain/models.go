package domain

import (
	"context"
	"time"

	eventlogdomain "github.com/smallbiznis/nbaflow/internal/eventlog/domain"
)

// Outcome is the worker's acknowledgment for one consumed event.
type Outcome struct {
	EventID       string                `json:"event_id"`
	CorrelationID string                `json:"correlation_id"`
	Action        eventlogdomain.Action `json:"action"`
	NBAID         *string               `json:"nba_id,omitempty"`
	AffectedIDs   []string              `json:"affected_ids,omitempty"`
	Error         string                `json:"error,omitempty"`
	ProcessedAt   time.Time             `json:"processed_at"`
}

// ProcessedStore remembers event ids that reached a terminal outcome.
type ProcessedStore interface {
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
}
