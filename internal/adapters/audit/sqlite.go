package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/applylens/inbox-policy/internal/core"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// sqliteTimeLayout sorts lexicographically for UTC timestamps
const sqliteTimeLayout = "2006-01-02 15:04:05.000000000"

// SQLiteStore persists audit entries in a SQLite database
type SQLiteStore struct {
	db        *sql.DB
	logger    *zap.Logger
	retention *retention
}

// NewSQLiteStore opens the database and creates the audit table
func NewSQLiteStore(dbPath string, logger *zap.Logger, window, cleanupFreq time.Duration) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_entries (
			id TEXT PRIMARY KEY,
			email_id TEXT NOT NULL,
			action_type TEXT NOT NULL,
			actor TEXT NOT NULL,
			policy_id TEXT NOT NULL,
			confidence REAL NOT NULL,
			rationale TEXT NOT NULL DEFAULT '',
			allowed BOOLEAN NOT NULL,
			reason_if_blocked TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_audit_created_at ON audit_entries(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_email_id ON audit_entries(email_id)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create index: %w", err)
		}
	}

	s := &SQLiteStore{db: db, logger: logger}
	s.retention = startRetention(s.Cleanup, window, cleanupFreq, logger)
	return s, nil
}

// Record inserts an entry
func (s *SQLiteStore) Record(ctx context.Context, e core.AuditEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_entries (`+columns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.EmailID, string(e.ActionType), e.Actor, e.PolicyID, e.Confidence,
		e.Rationale, e.Allowed, e.ReasonIfBlocked, e.CreatedAt.UTC().Format(sqliteTimeLayout))
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// Get returns the entry with the given id
func (s *SQLiteStore) Get(ctx context.Context, id string) (core.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+columns+` FROM audit_entries WHERE id = ?`, id)
	if err != nil {
		return core.AuditEntry{}, fmt.Errorf("failed to query audit entry: %w", err)
	}
	entries, err := scanSQLiteRows(rows)
	if err != nil {
		return core.AuditEntry{}, err
	}
	if len(entries) == 0 {
		return core.AuditEntry{}, ErrNotFound
	}
	return entries[0], nil
}

// List returns matching entries, newest first
func (s *SQLiteStore) List(ctx context.Context, filter core.AuditFilter) ([]core.AuditEntry, error) {
	query, args := listQuery("audit_entries", filter, func(t time.Time) interface{} {
		return t.Format(sqliteTimeLayout)
	})
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	return scanSQLiteRows(rows)
}

func scanSQLiteRows(rows *sql.Rows) ([]core.AuditEntry, error) {
	defer rows.Close()

	var entries []core.AuditEntry
	for rows.Next() {
		var (
			e          core.AuditEntry
			actionType string
			createdAt  string
		)
		if err := rows.Scan(&e.ID, &e.EmailID, &actionType, &e.Actor, &e.PolicyID, &e.Confidence,
			&e.Rationale, &e.Allowed, &e.ReasonIfBlocked, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.ActionType = core.ActionType(actionType)

		ts, err := time.ParseInLocation(sqliteTimeLayout, createdAt, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at timestamp: %w", err)
		}
		e.CreatedAt = ts
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to read audit entries: %w", err)
	}
	return entries, nil
}

// Cleanup removes entries created before the cutoff
func (s *SQLiteStore) Cleanup(ctx context.Context, before time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM audit_entries
		WHERE created_at < ?
	`, before.UTC().Format(sqliteTimeLayout))
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
func (s *SQLiteStore) Stop() {
	s.retention.stop()
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close SQLite database", zap.Error(err))
	}
}
