package service

import (
	"strings"
	"time"

	"github.com/google/uuid"
	intakedomain "github.com/smallbiznis/nbaflow/internal/intake/domain"
	nbadomain "github.com/smallbiznis/nbaflow/internal/nba/domain"
)

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// toEvent validates req and converts it into the queued event shape.
func toEvent(req intakedomain.CalculationEventRequest) (nbadomain.CalculationEvent, error) {
	eventID := strings.TrimSpace(req.EventID)
	parsedID, err := uuid.Parse(eventID)
	if err != nil {
		return nbadomain.CalculationEvent{}, intakedomain.ErrInvalidEventID
	}

	occurredAt, err := parseOccurredAt(req.OccurredAt)
	if err != nil {
		return nbadomain.CalculationEvent{}, intakedomain.ErrInvalidOccurredAt
	}

	source := strings.TrimSpace(req.Source)
	if source == "" {
		return nbadomain.CalculationEvent{}, intakedomain.ErrInvalidSource
	}
	definitionID := strings.TrimSpace(req.NBADefinitionID)
	if definitionID == "" {
		return nbadomain.CalculationEvent{}, intakedomain.ErrInvalidNBADefinitionID
	}

	enterprise := nbadomain.NormalizeOptional(req.EnterpriseNumber)
	account := nbadomain.NormalizeOptional(req.AccountID)
	contact := nbadomain.NormalizeOptional(req.ContactID)
	if enterprise == nil && account == nil && contact == nil {
		return nbadomain.CalculationEvent{}, intakedomain.ErrInvalidIdentifier
	}

	createNBA := true
	if req.CreateNBA != nil {
		createNBA = *req.CreateNBA
	}

	deactivateIDs := make([]string, 0, len(req.DeactivateNBAIDs))
	for _, id := range req.DeactivateNBAIDs {
		if id = strings.TrimSpace(id); id != "" {
			deactivateIDs = append(deactivateIDs, id)
		}
	}
	if !createNBA && len(deactivateIDs) == 0 {
		return nbadomain.CalculationEvent{}, intakedomain.ErrInvalidDeactivateNBAIDs
	}

	payload := req.Context
	if payload == nil {
		payload = map[string]any{}
	}

	return nbadomain.CalculationEvent{
		EventID:          parsedID.String(),
		OccurredAt:       occurredAt,
		Source:           source,
		NBADefinitionID:  definitionID,
		EnterpriseNumber: enterprise,
		AccountID:        account,
		ContactID:        contact,
		Context:          payload,
		CreateNBA:        createNBA,
		DeactivateNBAIDs: deactivateIDs,
	}, nil
}

func parseOccurredAt(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, intakedomain.ErrInvalidOccurredAt
	}
	if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return parsed.UTC(), nil
	}
	for _, layout := range naiveLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, intakedomain.ErrInvalidOccurredAt
}
