package repository

import (
	"context"

	"github.com/smallbiznis/nbaflow/internal/directory/domain"
)

type empty struct{}

// Empty is used when no directory database is configured; every lookup misses.
func Empty() domain.Service { return empty{} }

func (empty) LookupByAccountID(context.Context, string) (string, bool, error) {
	return "", false, nil
}

func (empty) LookupByEnterpriseNumber(context.Context, string) (string, bool, error) {
	return "", false, nil
}

func (empty) Overview(context.Context) (domain.Overview, error) {
	return domain.Overview{}, nil
}
