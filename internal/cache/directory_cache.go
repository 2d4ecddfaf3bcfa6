package cache

import (
	"strings"
	"time"

	"github.com/smallbiznis/nbaflow/internal/clock"
)

const defaultDirectoryTTL = 5 * time.Minute

// Lookup is a cached directory answer; Found=false caches a miss.
type Lookup struct {
	Value string
	Found bool
}

// DirectoryCache stores identifier lookups for enrichment.
type DirectoryCache interface {
	GetEnterpriseNumber(accountID string) (Lookup, bool)
	SetEnterpriseNumber(accountID string, lookup Lookup)
	GetAccountID(enterpriseNumber string) (Lookup, bool)
	SetAccountID(enterpriseNumber string, lookup Lookup)
}

type directoryCache struct {
	byAccount    Cache[string, Lookup]
	byEnterprise Cache[string, Lookup]
	ttl          time.Duration
}

// NewDirectoryCache returns an in-memory cache; ttl <= 0 uses the default.
func NewDirectoryCache(ttl time.Duration) DirectoryCache {
	return NewDirectoryCacheWithClock(ttl, clock.NewSystemClock())
}

func NewDirectoryCacheWithClock(ttl time.Duration, clk clock.Clock) DirectoryCache {
	if ttl <= 0 {
		ttl = defaultDirectoryTTL
	}
	return &directoryCache{
		byAccount:    NewTTLCacheWithClock[string, Lookup](clk),
		byEnterprise: NewTTLCacheWithClock[string, Lookup](clk),
		ttl:          ttl,
	}
}

func (c *directoryCache) GetEnterpriseNumber(accountID string) (Lookup, bool) {
	return c.byAccount.Get(cacheKey(accountID))
}

func (c *directoryCache) SetEnterpriseNumber(accountID string, lookup Lookup) {
	key := cacheKey(accountID)
	if key == "" {
		return
	}
	c.byAccount.Set(key, lookup, c.ttl)
}

func (c *directoryCache) GetAccountID(enterpriseNumber string) (Lookup, bool) {
	return c.byEnterprise.Get(cacheKey(enterpriseNumber))
}

func (c *directoryCache) SetAccountID(enterpriseNumber string, lookup Lookup) {
	key := cacheKey(enterpriseNumber)
	if key == "" {
		return
	}
	c.byEnterprise.Set(key, lookup, c.ttl)
}

func cacheKey(parts ...string) string {
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		values = append(values, trimmed)
	}
	return strings.Join(values, "|")
}
