package factory

import (
	"fmt"

	"github.com/applylens/inbox-policy/internal/adapters/policystore"
	"github.com/applylens/inbox-policy/internal/config"
	"github.com/applylens/inbox-policy/internal/core"
	"github.com/applylens/inbox-policy/internal/policy"
	"go.uber.org/zap"
)

// PolicyFactory creates policy sources based on configuration
type PolicyFactory struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *DatabaseFactory
}

// NewPolicyFactory creates a new policy factory
func NewPolicyFactory(cfg *config.Config, logger *zap.Logger, db *DatabaseFactory) *PolicyFactory {
	return &PolicyFactory{
		cfg:    cfg,
		logger: logger,
		db:     db,
	}
}

// CreatePolicySource creates the configured policy source
func (f *PolicyFactory) CreatePolicySource() (core.PolicySource, error) {
	policyCfg, err := f.cfg.GetPolicy()
	if err != nil {
		return nil, err
	}

	switch policyCfg.Source {
	case "defaults":
		return policystore.NewStaticSource(policy.DefaultPolicies()), nil
	case "file":
		return policystore.NewFileSource(policyCfg.File), nil
	case "postgres":
		db, err := f.db.Postgres()
		if err != nil {
			return nil, err
		}
		return policystore.NewPostgresSource(db, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported policy source: %s", policyCfg.Source)
	}
}

// CreateWatcher creates a hot-reload watcher for file sources. It returns
// nil when the source is not a file or watching is disabled.
func (f *PolicyFactory) CreateWatcher(source core.PolicySource, apply func([]core.Policy)) (*policystore.Watcher, error) {
	policyCfg, err := f.cfg.GetPolicy()
	if err != nil {
		return nil, err
	}
	fileSource, ok := source.(*policystore.FileSource)
	if !ok || !policyCfg.Watch {
		return nil, nil
	}
	return policystore.NewWatcher(fileSource, apply, f.logger, policyCfg.WatchDebounce)
}
