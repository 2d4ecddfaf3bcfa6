package enrichment

import (
	"context"

	directorydomain "github.com/smallbiznis/nbaflow/internal/directory/domain"
	nbadomain "github.com/smallbiznis/nbaflow/internal/nba/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	FilledNone             = ""
	FilledAccountID        = "account_id"
	FilledEnterpriseNumber = "enterprise_number"
)

// Result reports which identifier, if any, was filled in.
type Result struct {
	Filled string
}

func (r Result) Changed() bool { return r.Filled != FilledNone }

// Service is the enrichment step shared by intake and the calculation worker.
type Service interface {
	Enrich(ctx context.Context, event *nbadomain.CalculationEvent) Result
}

type Params struct {
	fx.In

	Log       *zap.Logger
	Directory directorydomain.Directory
}

type Enricher struct {
	log       *zap.Logger
	directory directorydomain.Directory
}

func New(p Params) *Enricher {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Enricher{log: log.Named("enrichment"), directory: p.Directory}
}

// Enrich fills the missing one of account_id/enterprise_number when the other
// resolves to a single directory match. It never fails the event: directory
// errors are logged and treated as no match.
func (e *Enricher) Enrich(ctx context.Context, event *nbadomain.CalculationEvent) Result {
	if e == nil || e.directory == nil || event == nil {
		return Result{}
	}
	account := nbadomain.NormalizeOptional(event.AccountID)
	enterprise := nbadomain.NormalizeOptional(event.EnterpriseNumber)

	switch {
	case account != nil && enterprise == nil:
		value, found, err := e.directory.LookupByAccountID(ctx, *account)
		if err != nil {
			e.log.Warn("directory lookup failed",
				zap.String("event_id", event.EventID),
				zap.String("key", FilledAccountID),
				zap.Error(err),
			)
			return Result{}
		}
		filled := nbadomain.Optional(value)
		if !found || filled == nil {
			return Result{}
		}
		event.EnterpriseNumber = filled
		return Result{Filled: FilledEnterpriseNumber}

	case enterprise != nil && account == nil:
		value, found, err := e.directory.LookupByEnterpriseNumber(ctx, *enterprise)
		if err != nil {
			e.log.Warn("directory lookup failed",
				zap.String("event_id", event.EventID),
				zap.String("key", FilledEnterpriseNumber),
				zap.Error(err),
			)
			return Result{}
		}
		filled := nbadomain.Optional(value)
		if !found || filled == nil {
			return Result{}
		}
		event.AccountID = filled
		return Result{Filled: FilledAccountID}
	}

	return Result{}
}
