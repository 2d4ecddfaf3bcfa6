package domain

import (
	"context"
	"time"
)

type ListFilter struct {
	FindFilter
	Limit  int
	Offset int
}

// Repository stores NBA records for the process lifetime. Reads never observe
// the inside of a Transaction.
type Repository interface {
	Get(ctx context.Context, id string) (*NBA, error)
	Find(ctx context.Context, filter FindFilter) ([]NBA, error)
	List(ctx context.Context, filter ListFilter) ([]NBA, int, error)
	Transaction(ctx context.Context, fn func(tx Writer) error) error
}

// Writer is valid only inside the Transaction callback that received it.
type Writer interface {
	Get(id string) (NBA, bool)
	// UpsertFromCalculationEvent appends a fresh new/active version for the
	// event's scope. It never merges into an existing record. created is false
	// when the event_id already produced a record; that record is returned as is.
	UpsertFromCalculationEvent(event CalculationEvent, priority int, at time.Time) (rec NBA, created bool, err error)
	DeactivateOtherActiveNewForScope(scope Scope, keepID string, at time.Time) ([]string, error)
	DeactivateNBAsByIDs(ids []string, at time.Time) ([]string, error)
	UpdateStatus(id string, status Status, at time.Time) (NBA, error)
}
