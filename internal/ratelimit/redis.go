package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs limiter buckets with Redis so multiple server
// instances share one view of request counts.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps a Redis client. prefix namespaces this limiter
// family's keys (e.g. "rl:auth:").
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	full := s.prefix + key

	count, err := s.client.Incr(ctx, full).Result()
	if err != nil {
		return 0, time.Time{}, err
	}
	if count == 1 {
		if err := s.client.PExpire(ctx, full, window).Err(); err != nil {
			return 0, time.Time{}, err
		}
	}

	ttl, err := s.client.PTTL(ctx, full).Result()
	if err != nil {
		return 0, time.Time{}, err
	}
	if ttl < 0 {
		// Expiry was lost (e.g. Redis restarted between INCR and
		// PEXPIRE); restore it so the bucket cannot live forever.
		ttl = window
		if err := s.client.PExpire(ctx, full, window).Err(); err != nil {
			return 0, time.Time{}, err
		}
	}

	return int(count), time.Now().Add(ttl), nil
}
