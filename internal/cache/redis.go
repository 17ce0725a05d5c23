package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/explorex/nomad-connect/internal/config"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

func (c *RedisCache) Incr(ctx context.Context, key string) (int64, error) {
	return c.Client.Incr(ctx, key).Result()
}

// KeyForCompatibility generates the cache key for a compatibility result.
// The pair is canonical (low, high) so both orderings hit the same entry.
func (c *RedisCache) KeyForCompatibility(userA, userB uint64) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("compat:%d:%d", userA, userB)
}

// GetCompatibility returns the cached compatibility payload for a pair,
// or ("", false) on a miss.
func (c *RedisCache) GetCompatibility(ctx context.Context, userA, userB uint64) (string, bool, error) {
	val, err := c.Client.Get(ctx, c.KeyForCompatibility(userA, userB)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil // cache miss
	} else if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// SetCompatibility stores a compatibility payload for 24h, matching the
// one-result-per-pair-per-day product rule.
func (c *RedisCache) SetCompatibility(ctx context.Context, userA, userB uint64, payload string) error {
	return c.Client.Set(ctx, c.KeyForCompatibility(userA, userB), payload, 24*time.Hour).Err()
}
