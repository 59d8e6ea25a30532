package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bytepress/bytepress/internal/metrics"
	"github.com/redis/go-redis/v9"
)

// RedisCache backs the result cache with Redis so entries survive process
// restarts and are shared between instances. TTL eviction is delegated to
// Redis key expiry.
type RedisCache struct {
	client *redis.Client
	prefix string
}

var _ Cache = (*RedisCache)(nil)

func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisCache{
		client: redis.NewClient(opts),
		prefix: "result:",
	}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (*Entry, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheOperationsTotal.WithLabelValues("get", "miss").Inc()
		return nil, ErrNotFound
	}
	if err != nil {
		metrics.CacheOperationsTotal.WithLabelValues("get", "error").Inc()
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("cache decode %s: %w", key, err)
	}

	metrics.CacheOperationsTotal.WithLabelValues("get", "hit").Inc()
	return &entry, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}

	if err := c.client.Set(ctx, c.prefix+key, data, ttl).Err(); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues("set", "error").Inc()
		return fmt.Errorf("cache set %s: %w", key, err)
	}

	metrics.CacheOperationsTotal.WithLabelValues("set", "ok").Inc()
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("cache delete %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
