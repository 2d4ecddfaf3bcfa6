package domain

import (
	"context"
	"errors"
)

const (
	TransportHTTP  = "http"
	TransportKafka = "kafka"

	StatusAccepted = "accepted"
)

// CalculationEventRequest is the wire form of a calculation event.
// OccurredAt is kept as text so timestamps without an offset can be read as UTC.
type CalculationEventRequest struct {
	EventID          string         `json:"event_id"`
	OccurredAt       string         `json:"occurred_at"`
	Source           string         `json:"source"`
	NBADefinitionID  string         `json:"nba_definition_id"`
	EnterpriseNumber *string        `json:"enterprise_number"`
	AccountID        *string        `json:"account_id"`
	ContactID        *string        `json:"contact_id"`
	Context          map[string]any `json:"context"`
	CreateNBA        *bool          `json:"create_nba"`
	DeactivateNBAIDs []string       `json:"deactivate_nba_ids"`

	Transport string `json:"-"`
}

type Accepted struct {
	Status  string `json:"status"`
	EventID string `json:"event_id"`
}

type Service interface {
	Submit(ctx context.Context, req CalculationEventRequest) (Accepted, error)
}

var (
	ErrInvalidEventID          = errors.New("invalid_event_id")
	ErrInvalidOccurredAt       = errors.New("invalid_occurred_at")
	ErrInvalidSource           = errors.New("invalid_source")
	ErrInvalidNBADefinitionID  = errors.New("invalid_nba_definition_id")
	ErrInvalidIdentifier       = errors.New("invalid_identifier")
	ErrInvalidDeactivateNBAIDs = errors.New("invalid_deactivate_nba_ids")
	ErrRateLimited             = errors.New("rate_limited")
	ErrRateLimitUnavailable    = errors.New("rate_limit_unavailable")
)
