package policystore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/applylens/inbox-policy/internal/core"
	"github.com/applylens/inbox-policy/internal/policy"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type policyRow struct {
	ID          string `db:"id"`
	Description string `db:"description"`
	Condition   []byte `db:"condition"`
	Action      []byte `db:"action"`
	Rationale   string `db:"rationale"`
}

// PostgresSource loads enabled policies from the policies table, ordered by
// priority then id
type PostgresSource struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPostgresSource wraps an open, migrated database
func NewPostgresSource(db *sqlx.DB, logger *zap.Logger) *PostgresSource {
	return &PostgresSource{db: db, logger: logger}
}

// Load returns all enabled policies
func (s *PostgresSource) Load(ctx context.Context) ([]core.Policy, error) {
	var rows []policyRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, description, condition, action, rationale
		FROM policies
		WHERE enabled
		ORDER BY priority, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query policies: %w", err)
	}

	policies := make([]core.Policy, 0, len(rows))
	for _, row := range rows {
		p := core.Policy{ID: row.ID, Description: row.Description, Rationale: row.Rationale}
		if err := json.Unmarshal(row.Condition, &p.Condition); err != nil {
			return nil, fmt.Errorf("failed to decode condition of policy %s: %w", row.ID, err)
		}
		if err := json.Unmarshal(row.Action, &p.Action); err != nil {
			return nil, fmt.Errorf("failed to decode action of policy %s: %w", row.ID, err)
		}
		policies = append(policies, p)
	}

	if err := policy.Validate(policies); err != nil {
		return nil, err
	}

	s.logger.Debug("Loaded policies from database", zap.Int("policies", len(policies)))
	return policies, nil
}

// Upsert stores policies, keeping their order as priority
func (s *PostgresSource) Upsert(ctx context.Context, policies []core.Policy) error {
	if err := policy.Validate(policies); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i, p := range policies {
		condition, err := json.Marshal(p.Condition)
		if err != nil {
			return fmt.Errorf("failed to encode condition of policy %s: %w", p.ID, err)
		}
		action, err := json.Marshal(p.Action)
		if err != nil {
			return fmt.Errorf("failed to encode action of policy %s: %w", p.ID, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO policies (id, description, condition, action, rationale, enabled, priority, updated_at)
			VALUES ($1, $2, $3, $4, $5, TRUE, $6, NOW())
			ON CONFLICT (id) DO UPDATE SET
				description = EXCLUDED.description,
				condition = EXCLUDED.condition,
				action = EXCLUDED.action,
				rationale = EXCLUDED.rationale,
				enabled = TRUE,
				priority = EXCLUDED.priority,
				updated_at = NOW()
		`, p.ID, p.Description, condition, action, p.Rationale, i)
		if err != nil {
			return fmt.Errorf("failed to upsert policy %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit policies: %w", err)
	}
	return nil
}
