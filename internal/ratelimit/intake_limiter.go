package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/nbaflow/internal/config"
	"go.uber.org/fx"
)

const keyIntakeSource = "nba:intake:source:%s"

var ErrRedisRequired = errors.New("rate limit requires REDIS_ADDR")

type IntakeLimiterParams struct {
	fx.In

	Config config.Config
	Redis  *redis.Client `optional:"true"`
}

// IntakeLimiter throttles calculation events per producing source. A nil
// limiter allows everything.
type IntakeLimiter struct {
	bucket      *TokenBucket
	sourceRate  float64
	sourceBurst int
}

func NewIntakeLimiter(p IntakeLimiterParams) (*IntakeLimiter, error) {
	limitCfg := p.Config.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}
	if p.Redis == nil {
		return nil, ErrRedisRequired
	}
	if limitCfg.SourceRate <= 0 || limitCfg.SourceBurst <= 0 {
		return nil, errors.New("intake source rate limit must be positive")
	}

	return &IntakeLimiter{
		bucket:      NewTokenBucket(p.Redis),
		sourceRate:  limitCfg.SourceRate,
		sourceBurst: limitCfg.SourceBurst,
	}, nil
}

func (l *IntakeLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *IntakeLimiter) AllowSource(ctx context.Context, source string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyIntakeSource, strings.ToLower(strings.TrimSpace(source)))
	return l.bucket.Allow(ctx, key, l.sourceRate, l.sourceBurst)
}
