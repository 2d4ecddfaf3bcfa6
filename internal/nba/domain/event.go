package domain

import "time"

// CalculationEvent describes a newly computed or retracted recommendation.
type CalculationEvent struct {
	EventID          string         `json:"event_id"`
	OccurredAt       time.Time      `json:"occurred_at"`
	Source           string         `json:"source"`
	NBADefinitionID  string         `json:"nba_definition_id"`
	EnterpriseNumber *string        `json:"enterprise_number,omitempty"`
	AccountID        *string        `json:"account_id,omitempty"`
	ContactID        *string        `json:"contact_id,omitempty"`
	Context          map[string]any `json:"context,omitempty"`
	CreateNBA        bool           `json:"create_nba"`
	DeactivateNBAIDs []string       `json:"deactivate_nba_ids,omitempty"`
}

func (e CalculationEvent) Scope() Scope {
	return Scope{
		NBADefinitionID:  e.NBADefinitionID,
		AccountID:        e.AccountID,
		EnterpriseNumber: e.EnterpriseNumber,
	}
}
