package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/mikey/threat-verdict/internal/core"
	"go.uber.org/zap"
)

const cacheTable = "threat_cache"

// SQLCache is the CacheRepository shared by the SQLite and MySQL backends.
// Timestamps are stored as unix nanoseconds so both dialects compare them the same way.
type SQLCache struct {
	db       *sql.DB
	dialect  string
	upsert   func(sq.InsertBuilder) sq.InsertBuilder
	logger   *zap.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

func newSQLCache(db *sql.DB, dialect string, upsert func(sq.InsertBuilder) sq.InsertBuilder, logger *zap.Logger, cleanupFreq time.Duration) *SQLCache {
	c := &SQLCache{
		db:      db,
		dialect: dialect,
		upsert:  upsert,
		logger:  logger,
		stopCh:  make(chan struct{}),
		now:     time.Now,
	}
	if cleanupFreq > 0 {
		go startCleanupTask(c, cleanupFreq, c.stopCh, logger)
	}
	return c
}

// Get retrieves a cache entry
func (c *SQLCache) Get(ctx context.Context, key string) (*core.CacheEntry, error) {
	query, args, err := sq.Select("payload", "stored_at", "expires_at").
		From(cacheTable).
		Where(sq.Eq{"cache_key": key}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build cache query: %w", err)
	}

	var (
		payload             []byte
		storedAt, expiresAt int64
	)
	err = c.db.QueryRowContext(ctx, query, args...).Scan(&payload, &storedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query %s cache: %w", c.dialect, err)
	}

	entry := &core.CacheEntry{
		Key:       key,
		Value:     payload,
		StoredAt:  time.Unix(0, storedAt),
		ExpiresAt: time.Unix(0, expiresAt),
	}
	if !c.now().Before(entry.ExpiresAt) {
		return nil, core.ErrExpired
	}
	return entry, nil
}

// Set stores a cache entry, replacing any entry with the same key
func (c *SQLCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	insert := sq.Insert(cacheTable).
		Columns("cache_key", "payload", "stored_at", "expires_at").
		Values(entry.Key, entry.Value, entry.StoredAt.UnixNano(), entry.ExpiresAt.UnixNano())

	query, args, err := c.upsert(insert).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build cache insert: %w", err)
	}
	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	return nil
}

// Delete removes a cache entry
func (c *SQLCache) Delete(ctx context.Context, key string) error {
	query, args, err := sq.Delete(cacheTable).Where(sq.Eq{"cache_key": key}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build cache delete: %w", err)
	}
	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Cleanup removes expired entries
func (c *SQLCache) Cleanup(ctx context.Context) error {
	query, args, err := sq.Delete(cacheTable).Where(sq.LtOrEq{"expires_at": c.now().UnixNano()}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build cache cleanup: %w", err)
	}

	result, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		c.logger.Debug("Cleaned up expired cache entries",
			zap.String("dialect", c.dialect),
			zap.Int64("expired_count", rowsAffected))
	}
	return nil
}

// Stop stops the background cleanup task and closes the database connection
func (c *SQLCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close cache database", zap.String("dialect", c.dialect), zap.Error(err))
		}
	})
}
