package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mikey/threat-verdict/internal/core"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisCache stores entries in Redis and lets Redis expire them
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
	logger    *zap.Logger
	now       func() time.Time
}

// redisEnvelope is the stored form of a CacheEntry
type redisEnvelope struct {
	Value     []byte `json:"v"`
	StoredAt  int64  `json:"s"`
	ExpiresAt int64  `json:"e"`
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(ctx context.Context, addr, password string, db int, keyPrefix string, logger *zap.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	logger.Info("Connected to Redis", zap.String("addr", addr), zap.Int("db", db))

	return &RedisCache{
		client:    client,
		keyPrefix: keyPrefix,
		logger:    logger,
		now:       time.Now,
	}, nil
}

func (c *RedisCache) key(k string) string {
	return c.keyPrefix + k
}

// Get retrieves a cache entry
func (c *RedisCache) Get(ctx context.Context, key string) (*core.CacheEntry, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry from Redis: %w", err)
	}
	return decodeEnvelope(key, data, c.now())
}

// Set stores a cache entry with a TTL derived from its expiry time
func (c *RedisCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	ttl := entry.ExpiresAt.Sub(c.now())
	if ttl <= 0 {
		return nil
	}

	data, err := encodeEnvelope(entry)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.key(entry.Key), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache entry in Redis: %w", err)
	}
	return nil
}

// Delete removes a cache entry
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete cache entry from Redis: %w", err)
	}
	return nil
}

// Cleanup is a no-op, Redis expires keys itself
func (c *RedisCache) Cleanup(ctx context.Context) error {
	return nil
}

// Stop closes the Redis connection
func (c *RedisCache) Stop() {
	if err := c.client.Close(); err != nil {
		c.logger.Error("Failed to close Redis connection", zap.Error(err))
	}
}

func encodeEnvelope(entry *core.CacheEntry) ([]byte, error) {
	data, err := json.Marshal(redisEnvelope{
		Value:     entry.Value,
		StoredAt:  entry.StoredAt.UnixNano(),
		ExpiresAt: entry.ExpiresAt.UnixNano(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	return data, nil
}

func decodeEnvelope(key string, data []byte, now time.Time) (*core.CacheEntry, error) {
	var env redisEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}
	entry := &core.CacheEntry{
		Key:       key,
		Value:     env.Value,
		StoredAt:  time.Unix(0, env.StoredAt),
		ExpiresAt: time.Unix(0, env.ExpiresAt),
	}
	if !now.Before(entry.ExpiresAt) {
		return nil, core.ErrExpired
	}
	return entry, nil
}
