package factory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mikey/threat-verdict/internal/adapters/cache"
	"github.com/mikey/threat-verdict/internal/config"
	"github.com/mikey/threat-verdict/internal/core"
	"go.uber.org/zap"
)

// CacheFactory creates cache repositories based on configuration
type CacheFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewCacheFactory creates a new cache factory
func NewCacheFactory(cfg *config.Config, logger *zap.Logger) *CacheFactory {
	return &CacheFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCacheRepository creates a cache repository based on the configuration.
// It returns nil when caching is disabled.
func (f *CacheFactory) CreateCacheRepository() (core.CacheRepository, error) {
	cc := f.cfg.GetCache()
	if !cc.Enabled {
		f.logger.Info("External lookup cache disabled")
		return nil, nil
	}

	var (
		repo core.CacheRepository
		err  error
	)
	switch cc.Type {
	case "memory":
		repo = cache.NewMemoryCache(f.logger, cc.CleanupFrequency)
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cc.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		repo, err = cache.NewSQLiteCache(cc.SQLitePath, f.logger, cc.CleanupFrequency)
	case "mysql":
		repo, err = cache.NewMySQLCache(cc.MySQLDSN, f.logger, cc.CleanupFrequency)
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		repo, err = cache.NewRedisCache(ctx, cc.RedisAddr, cc.RedisPassword, cc.RedisDB, cc.RedisKeyPrefix, f.logger)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cc.Type)
	}
	if err != nil {
		return nil, err
	}

	f.logger.Info("External lookup cache ready", zap.String("type", cc.Type), zap.Duration("ttl", cc.TTL))
	return repo, nil
}

// GetCacheTTL returns the configured cache TTL
func (f *CacheFactory) GetCacheTTL() time.Duration {
	return f.cfg.GetCache().TTL
}
