package processed

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/nbaflow/internal/calculation/domain"
)

const defaultKeyPrefix = "nbaflow:processed:"

type redisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

func NewRedisStore(client *redis.Client, keyPrefix string, ttl time.Duration) domain.ProcessedStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &redisStore{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

func (s *redisStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	exists, err := s.client.Exists(ctx, s.key(eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("check processed event: %w", err)
	}
	return exists > 0, nil
}

func (s *redisStore) MarkProcessed(ctx context.Context, eventID string) error {
	if _, err := s.client.SetNX(ctx, s.key(eventID), "1", s.ttl).Result(); err != nil {
		return fmt.Errorf("mark processed event: %w", err)
	}
	return nil
}

func (s *redisStore) key(eventID string) string {
	return s.keyPrefix + strings.TrimSpace(eventID)
}
