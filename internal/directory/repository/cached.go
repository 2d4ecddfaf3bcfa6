package repository

import (
	"context"

	"github.com/smallbiznis/nbaflow/internal/cache"
	"github.com/smallbiznis/nbaflow/internal/directory/domain"
)

type cached struct {
	domain.Service
	cache cache.DirectoryCache
}

// WithCache memoizes lookups, misses included. Errors are not cached.
func WithCache(next domain.Service, c cache.DirectoryCache) domain.Service {
	if c == nil {
		return next
	}
	return &cached{Service: next, cache: c}
}

func (d *cached) LookupByAccountID(ctx context.Context, accountID string) (string, bool, error) {
	if hit, ok := d.cache.GetEnterpriseNumber(accountID); ok {
		return hit.Value, hit.Found, nil
	}
	value, found, err := d.Service.LookupByAccountID(ctx, accountID)
	if err != nil {
		return "", false, err
	}
	d.cache.SetEnterpriseNumber(accountID, cache.Lookup{Value: value, Found: found})
	return value, found, nil
}

func (d *cached) LookupByEnterpriseNumber(ctx context.Context, enterpriseNumber string) (string, bool, error) {
	if hit, ok := d.cache.GetAccountID(enterpriseNumber); ok {
		return hit.Value, hit.Found, nil
	}
	value, found, err := d.Service.LookupByEnterpriseNumber(ctx, enterpriseNumber)
	if err != nil {
		return "", false, err
	}
	d.cache.SetAccountID(enterpriseNumber, cache.Lookup{Value: value, Found: found})
	return value, found, nil
}
