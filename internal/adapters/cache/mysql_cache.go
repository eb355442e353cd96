package cache

import (
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// NewMySQLCache creates a new MySQL cache
func NewMySQLCache(dsn string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLCache, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS threat_cache (
			cache_key VARCHAR(255) PRIMARY KEY,
			payload LONGBLOB NOT NULL,
			stored_at BIGINT NOT NULL,
			expires_at BIGINT NOT NULL,
			INDEX idx_threat_cache_expires_at (expires_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	upsert := func(b sq.InsertBuilder) sq.InsertBuilder {
		return b.Suffix("ON DUPLICATE KEY UPDATE payload = VALUES(payload), stored_at = VALUES(stored_at), expires_at = VALUES(expires_at)")
	}
	return newSQLCache(db, "mysql", upsert, logger, cleanupFreq), nil
}
