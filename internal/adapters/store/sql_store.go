package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mikey/threat-verdict/internal/core"
	"go.uber.org/zap"
)

const verdictTable = "threat_verdicts"

// Supported database/sql driver names
const (
	DriverSQLite   = "sqlite3"
	DriverMySQL    = "mysql"
	DriverPostgres = "pgx"
)

var schemas = map[string]string{
	DriverSQLite: `CREATE TABLE IF NOT EXISTS threat_verdicts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		message_id TEXT NOT NULL,
		classification TEXT NOT NULL,
		severity TEXT NOT NULL,
		final_score REAL NOT NULL,
		confidence TEXT NOT NULL,
		verdict TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	DriverMySQL: `CREATE TABLE IF NOT EXISTS threat_verdicts (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		message_id VARCHAR(255) NOT NULL,
		classification VARCHAR(32) NOT NULL,
		severity VARCHAR(32) NOT NULL,
		final_score DOUBLE NOT NULL,
		confidence VARCHAR(16) NOT NULL,
		verdict JSON NOT NULL,
		created_at BIGINT NOT NULL,
		INDEX idx_threat_verdicts_message_id (message_id)
	)`,
	DriverPostgres: `CREATE TABLE IF NOT EXISTS threat_verdicts (
		id BIGSERIAL PRIMARY KEY,
		message_id TEXT NOT NULL,
		classification TEXT NOT NULL,
		severity TEXT NOT NULL,
		final_score DOUBLE PRECISION NOT NULL,
		confidence TEXT NOT NULL,
		verdict JSONB NOT NULL,
		created_at BIGINT NOT NULL
	)`,
}

// indexes lists the statements run after the table exists; MySQL declares its index inline
var indexes = map[string]string{
	DriverSQLite:   `CREATE INDEX IF NOT EXISTS idx_threat_verdicts_message_id ON threat_verdicts(message_id)`,
	DriverPostgres: `CREATE INDEX IF NOT EXISTS idx_threat_verdicts_message_id ON threat_verdicts(message_id)`,
}

// SQLStore is a VerdictSink writing one row per evaluated message
type SQLStore struct {
	db      *sql.DB
	driver  string
	builder sq.StatementBuilderType
	logger  *zap.Logger
	now     func() time.Time
}

// NewSQLStore opens the database and ensures the schema exists
func NewSQLStore(ctx context.Context, driver, dsn string, logger *zap.Logger) (*SQLStore, error) {
	if _, ok := schemas[driver]; !ok {
		return nil, fmt.Errorf("unsupported store driver: %s", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}

	var placeholder sq.PlaceholderFormat = sq.Question
	if driver == DriverPostgres {
		placeholder = sq.Dollar
	}

	s := &SQLStore{
		db:      db,
		driver:  driver,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
		logger:  logger,
		now:     time.Now,
	}
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the verdict table and its index if missing
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemas[s.driver]); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	if stmt, ok := indexes[s.driver]; ok {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// Save stores the verdict of a message
func (s *SQLStore) Save(ctx context.Context, messageID string, verdict *core.ThreatVerdict) error {
	if verdict == nil {
		return fmt.Errorf("failed to save verdict for %s: nil verdict", messageID)
	}

	data, err := json.Marshal(verdict)
	if err != nil {
		return fmt.Errorf("failed to marshal verdict: %w", err)
	}

	query, args, err := s.builder.Insert(verdictTable).
		Columns("message_id", "classification", "severity", "final_score", "confidence", "verdict", "created_at").
		Values(messageID, string(verdict.Classification), string(verdict.Severity), verdict.FinalScore,
			string(verdict.Confidence.Level), string(data), s.now().UnixNano()).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build verdict insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert verdict: %w", err)
	}

	s.logger.Debug("Verdict stored",
		zap.String("message_id", messageID),
		zap.String("classification", string(verdict.Classification)))
	return nil
}

// Latest returns the most recently stored verdict of a message, or core.ErrNotFound
func (s *SQLStore) Latest(ctx context.Context, messageID string) (*core.ThreatVerdict, error) {
	query, args, err := s.builder.Select("verdict").
		From(verdictTable).
		Where(sq.Eq{"message_id": messageID}).
		OrderBy("id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build verdict query: %w", err)
	}

	var data string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query verdict: %w", err)
	}

	var v core.ThreatVerdict
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stored verdict: %w", err)
	}
	return &v, nil
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}
