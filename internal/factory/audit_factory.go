package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/applylens/inbox-policy/internal/adapters/audit"
	"github.com/applylens/inbox-policy/internal/config"
	"github.com/applylens/inbox-policy/internal/core"
	"go.uber.org/zap"
)

// AuditStore is an audit repository with a background task to stop
type AuditStore interface {
	core.AuditRepository
	Stop()
}

// AuditFactory creates audit stores based on configuration
type AuditFactory struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *DatabaseFactory
}

// NewAuditFactory creates a new audit factory
func NewAuditFactory(cfg *config.Config, logger *zap.Logger, db *DatabaseFactory) *AuditFactory {
	return &AuditFactory{
		cfg:    cfg,
		logger: logger,
		db:     db,
	}
}

// CreateAuditStore creates the configured store, or nil when audit.type is none
func (f *AuditFactory) CreateAuditStore() (AuditStore, error) {
	auditCfg, err := f.cfg.GetAudit()
	if err != nil {
		return nil, err
	}

	switch auditCfg.Type {
	case "none":
		f.logger.Warn("Audit store disabled, decisions will only be logged")
		return nil, nil
	case "memory":
		return audit.NewMemoryStore(f.logger, auditCfg.Retention, auditCfg.CleanupFrequency), nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(auditCfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return audit.NewSQLiteStore(auditCfg.SQLitePath, f.logger, auditCfg.Retention, auditCfg.CleanupFrequency)
	case "mysql":
		return audit.NewMySQLStore(auditCfg.MySQLDSN, f.logger, auditCfg.Retention, auditCfg.CleanupFrequency)
	case "postgres":
		db, err := f.db.Postgres()
		if err != nil {
			return nil, err
		}
		return audit.NewPostgresStore(db, f.logger, auditCfg.Retention, auditCfg.CleanupFrequency), nil
	default:
		return nil, fmt.Errorf("unsupported audit type: %s", auditCfg.Type)
	}
}

// Repository narrows a possibly nil store to the port, keeping nil untyped
func Repository(store AuditStore) core.AuditRepository {
	if store == nil {
		return nil
	}
	return store
}
