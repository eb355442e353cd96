package reputation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/mikey/threat-verdict/internal/core"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "vt:url:"

// CachedOracle decorates a ReputationOracle with an external cache.
// Not-found answers are never cached so that submitted URLs get re-queried.
type CachedOracle struct {
	next   core.ReputationOracle
	cache  core.CacheRepository
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedOracle creates a new caching decorator
func NewCachedOracle(next core.ReputationOracle, cache core.CacheRepository, ttl time.Duration, logger *zap.Logger) *CachedOracle {
	return &CachedOracle{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *CachedOracle) LookupURL(ctx context.Context, urlID string) (*core.AnalysisStats, error) {
	key := cacheKeyPrefix + urlID

	if entry, err := c.cache.Get(ctx, key); err == nil {
		var stats core.AnalysisStats
		if err := json.Unmarshal(entry.Value, &stats); err == nil {
			c.logger.Debug("Reputation cache hit", zap.String("key", key))
			return &stats, nil
		}
	} else if !errors.Is(err, core.ErrNotFound) && !errors.Is(err, core.ErrExpired) {
		c.logger.Warn("Reputation cache read failed", zap.Error(err))
	}

	stats, err := c.next.LookupURL(ctx, urlID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(stats); err == nil {
		now := time.Now()
		entry := &core.CacheEntry{Key: key, Value: data, StoredAt: now, ExpiresAt: now.Add(c.ttl)}
		if err := c.cache.Set(ctx, entry); err != nil {
			c.logger.Warn("Failed to update reputation cache", zap.Error(err))
		}
	}
	return stats, nil
}

func (c *CachedOracle) SubmitURL(ctx context.Context, url string) error {
	if err := c.next.SubmitURL(ctx, url); err != nil {
		return err
	}
	if err := c.cache.Delete(ctx, cacheKeyPrefix+URLID(url)); err != nil && !errors.Is(err, core.ErrNotFound) {
		c.logger.Debug("Failed to invalidate reputation cache", zap.Error(err))
	}
	return nil
}
