package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/applylens/inbox-policy/internal/core"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// PostgresStore persists audit entries in PostgreSQL. The schema is owned by
// the postgres adapter's migrations.
type PostgresStore struct {
	db        *sqlx.DB
	logger    *zap.Logger
	retention *retention
}

// NewPostgresStore wraps an open, migrated database
func NewPostgresStore(db *sqlx.DB, logger *zap.Logger, window, cleanupFreq time.Duration) *PostgresStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &PostgresStore{db: db, logger: logger}
	s.retention = startRetention(s.Cleanup, window, cleanupFreq, logger)
	return s
}

// Record inserts an entry
func (s *PostgresStore) Record(ctx context.Context, e core.AuditEntry) error {
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
func (s *PostgresStore) Get(ctx context.Context, id string) (core.AuditEntry, error) {
	var e core.AuditEntry
	err := s.db.GetContext(ctx, &e, `SELECT `+columns+` FROM audit_entries WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.AuditEntry{}, ErrNotFound
		}
		return core.AuditEntry{}, fmt.Errorf("failed to query audit entry: %w", err)
	}
	return e, nil
}

// List returns matching entries, newest first
func (s *PostgresStore) List(ctx context.Context, filter core.AuditFilter) ([]core.AuditEntry, error) {
	query, args := listQuery("audit_entries", filter, timeValue)
	var entries []core.AuditEntry
	if err := s.db.SelectContext(ctx, &entries, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	return entries, nil
}

// Cleanup removes entries created before the cutoff
func (s *PostgresStore) Cleanup(ctx context.Context, before time.Time) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM audit_entries WHERE created_at < $1`, before.UTC())
	if err != nil {
		return fmt.Errorf("failed to clean up audit entries: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil {
		s.logger.Debug("Cleaned up audit entries", zap.Int64("removed_count", n))
	}
	return nil
}

// Stop stops the background cleanup task. The database handle is owned by
// the caller.
func (s *PostgresStore) Stop() {
	s.retention.stop()
}
