package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/applylens/inbox-policy/internal/core"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// MySQLStore persists audit entries in MySQL
type MySQLStore struct {
	db        *sqlx.DB
	logger    *zap.Logger
	retention *retention
}

// NewMySQLStore connects to MySQL and creates the audit table. The DSN is
// rewritten to parse DATETIME columns as UTC time.Time values.
func NewMySQLStore(dsn string, logger *zap.Logger, window, cleanupFreq time.Duration) (*MySQLStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse MySQL DSN: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	db, err := sqlx.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_entries (
			id VARCHAR(64) PRIMARY KEY,
			email_id VARCHAR(255) NOT NULL,
			action_type VARCHAR(32) NOT NULL,
			actor VARCHAR(64) NOT NULL,
			policy_id VARCHAR(255) NOT NULL,
			confidence DOUBLE NOT NULL,
			rationale TEXT NOT NULL,
			allowed BOOLEAN NOT NULL,
			reason_if_blocked VARCHAR(255) NOT NULL DEFAULT '',
			created_at DATETIME(6) NOT NULL,
			INDEX idx_audit_created_at (created_at),
			INDEX idx_audit_email_id (email_id)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	s := &MySQLStore{db: db, logger: logger}
	s.retention = startRetention(s.Cleanup, window, cleanupFreq, logger)
	return s, nil
}

// Record inserts an entry
func (s *MySQLStore) Record(ctx context.Context, e core.AuditEntry) error {
	e.CreatedAt = e.CreatedAt.UTC()
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO audit_entries (`+columns+`)
		VALUES (:id, :email_id, :action_type, :actor, :policy_id, :confidence,
			:rationale, :allowed, :reason_if_blocked, :created_at)
	`, e)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// Get returns the entry with the given id
func (s *MySQLStore) Get(ctx context.Context, id string) (core.AuditEntry, error) {
	var e core.AuditEntry
	err := s.db.GetContext(ctx, &e, `SELECT `+columns+` FROM audit_entries WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.AuditEntry{}, ErrNotFound
		}
		return core.AuditEntry{}, fmt.Errorf("failed to query audit entry: %w", err)
	}
	return e, nil
}

// List returns matching entries, newest first
func (s *MySQLStore) List(ctx context.Context, filter core.AuditFilter) ([]core.AuditEntry, error) {
	query, args := listQuery("audit_entries", filter, timeValue)
	var entries []core.AuditEntry
	if err := s.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	return entries, nil
}

// Cleanup removes entries created before the cutoff
func (s *MySQLStore) Cleanup(ctx context.Context, before time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM audit_entries
		WHERE created_at < ?
	`, before.UTC())
	if err != nil {
		return fmt.Errorf("failed to clean up audit entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		s.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		s.logger.Debug("Cleaned up audit entries", zap.Int64("removed_count", rowsAffected))
	}
	return nil
}

// Stop stops the background cleanup task and closes the database connection
func (s *MySQLStore) Stop() {
	s.retention.stop()
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close MySQL database", zap.Error(err))
	}
}
