package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/nbaflow/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultBucketTTL(t *testing.T) {
	tests := []struct {
		name  string
		rate  float64
		burst int
		want  time.Duration
	}{
		{name: "invalid", rate: 0, burst: 10, want: time.Second},
		{name: "fast refill", rate: 1000, burst: 10, want: time.Second},
		{name: "slow refill", rate: 5, burst: 100, want: 40 * time.Second},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, defaultBucketTTL(tc.rate, tc.burst))
		})
	}
}

func TestCastHelpers(t *testing.T) {
	assert.Equal(t, int64(1), castToInt(int64(1)))
	assert.Equal(t, int64(7), castToInt("7"))
	assert.Equal(t, int64(0), castToInt(nil))
	assert.InDelta(t, 0.25, castToFloat("0.25"), 1e-9)
	assert.InDelta(t, 3.0, castToFloat(int64(3)), 1e-9)
	assert.Equal(t, 0.0, castToFloat("nope"))
}

func TestBuildResultRetryAfter(t *testing.T) {
	denied := buildResult(false, 0.5, 1_000, 2, 10)
	assert.False(t, denied.Allowed)
	assert.Equal(t, 250*time.Millisecond, denied.RetryAfter)
	assert.Equal(t, 10, denied.Limit)

	allowed := buildResult(true, 4.7, 1_000, 2, 10)
	assert.True(t, allowed.Allowed)
	assert.Equal(t, 4, allowed.Remaining)
	assert.Zero(t, allowed.RetryAfter)
}

func TestTokenBucketRequiresClient(t *testing.T) {
	var bucket *TokenBucket
	res, err := bucket.Allow(context.Background(), "k", 1, 1)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.False(t, res.Allowed)
}

func TestIntakeLimiterDisabled(t *testing.T) {
	limiter, err := NewIntakeLimiter(IntakeLimiterParams{Config: config.Config{}})
	require.NoError(t, err)
	assert.Nil(t, limiter)

	res, err := limiter.AllowSource(context.Background(), "calc.v1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestIntakeLimiterRequiresRedis(t *testing.T) {
	cfg := config.Config{RateLimit: config.RateLimitConfig{Enabled: true, SourceRate: 1, SourceBurst: 1}}
	_, err := NewIntakeLimiter(IntakeLimiterParams{Config: cfg})
	assert.ErrorIs(t, err, ErrRedisRequired)
}
