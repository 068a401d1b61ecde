package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps the shared Redis client. All ephemeral state (fingerprint
// counters, progress hashes, the session cache) goes through it, so the API
// tier holds no cross-request state in process memory.
type Cache struct {
	client *redis.Client
}

func ConnectCache(addr, password string) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		PoolTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Cache{client: client}, nil
}

func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, key).Result()
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.client.Set(ctx, key, value, expiration).Err()
}

func (c *Cache) Del(ctx context.Context, keys ...string) error {
	return c.client.Del(ctx, keys...).Err()
}

// Incr atomically increments a counter, creating it at 1 if absent.
func (c *Cache) Incr(ctx context.Context, key string) (int64, error) {
	return c.client.Incr(ctx, key).Result()
}

// ExpireNX sets a TTL only if the key has none yet, so concurrent
// incrementers cannot push the expiry forward.
func (c *Cache) ExpireNX(ctx context.Context, key string, ttl time.Duration) error {
	return c.client.ExpireNX(ctx, key, ttl).Err()
}

func (c *Cache) HSet(ctx context.Context, key string, fields map[string]interface{}) error {
	return c.client.HSet(ctx, key, fields).Err()
}

func (c *Cache) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return c.client.HGetAll(ctx, key).Result()
}

func (c *Cache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return c.client.Expire(ctx, key, ttl).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}

// IsNil reports whether err is a cache miss.
func IsNil(err error) bool {
	return err == redis.Nil
}
