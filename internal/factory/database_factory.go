package factory

import (
	"sync"

	"github.com/applylens/inbox-policy/internal/adapters/postgres"
	"github.com/applylens/inbox-policy/internal/config"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// DatabaseFactory lazily opens the shared PostgreSQL handle used by the
// audit store and the policy source
type DatabaseFactory struct {
	cfg    *config.Config
	logger *zap.Logger

	once sync.Once
	db   *sqlx.DB
	err  error
}

// NewDatabaseFactory creates a new database factory
func NewDatabaseFactory(cfg *config.Config, logger *zap.Logger) *DatabaseFactory {
	return &DatabaseFactory{cfg: cfg, logger: logger}
}

// Postgres connects on first use and applies migrations when enabled
func (f *DatabaseFactory) Postgres() (*sqlx.DB, error) {
	f.once.Do(func() {
		dbCfg := f.cfg.GetDatabase()
		db, err := postgres.NewPostgresDB(dbCfg.PostgresDSN, f.logger)
		if err != nil {
			f.err = err
			return
		}
		if dbCfg.Migrate {
			if err := postgres.MigrateDB(db, f.logger); err != nil {
				db.Close()
				f.err = err
				return
			}
		}
		f.db = db
	})
	return f.db, f.err
}

// Close closes the handle if it was opened
func (f *DatabaseFactory) Close() error {
	if f.db == nil {
		return nil
	}
	return f.db.Close()
}
