// Package cache provides the Redis-backed key/value helpers used by the
// fast-store mirror.
package cache

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// RedisCache wraps a redis client with JSON helpers.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a RedisCache.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// GetJSON loads and unmarshals a key. The bool reports whether the key existed.
func (c *RedisCache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals and stores a value with a TTL.
func (c *RedisCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

// HSetJSON stores one marshaled field in a hash and refreshes the hash TTL.
func (c *RedisCache) HSetJSON(ctx context.Context, key, field string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.HSet(ctx, key, field, data).Err(); err != nil {
		return err
	}
	if ttl > 0 {
		return c.client.Expire(ctx, key, ttl).Err()
	}
	return nil
}

// HGetAllJSON loads every field of a hash, unmarshaling each through fn.
func (c *RedisCache) HGetAllJSON(ctx context.Context, key string, fn func(field string, data []byte) error) error {
	entries, err := c.client.HGetAll(ctx, key).Result()
	if err != nil {
		return err
	}
	for field, raw := range entries {
		if err := fn(field, []byte(raw)); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a key.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}
