package factory

import (
	"fmt"

	"github.com/applylens/inbox-policy/internal/adapters/filter"
	"github.com/applylens/inbox-policy/internal/config"
	"github.com/applylens/inbox-policy/internal/ports"
	"go.uber.org/zap"
)

// FilterFactory creates email filters based on configuration
type FilterFactory struct {
	cfg      *config.Config
	logger   *zap.Logger
	pipeline ports.Pipeline
}

// NewFilterFactory creates a new filter factory
func NewFilterFactory(cfg *config.Config, logger *zap.Logger, pipeline ports.Pipeline) *FilterFactory {
	return &FilterFactory{
		cfg:      cfg,
		logger:   logger,
		pipeline: pipeline,
	}
}

// CreateEmailFilter creates the configured mail filter, or nil for none
func (f *FilterFactory) CreateEmailFilter() (ports.EmailFilter, error) {
	serverCfg, err := f.cfg.GetServer()
	if err != nil {
		return nil, err
	}

	switch serverCfg.FilterType {
	case "none":
		return nil, nil
	case "postfix":
		return filter.NewPostfixFilter(f.pipeline, f.logger, filter.PostfixConfig{
			ListenAddr:     serverCfg.ListenAddress,
			HeaderPrefix:   serverCfg.HeaderPrefix,
			RejectBlocked:  serverCfg.RejectBlocked,
			ModifySubject:  serverCfg.ModifySubject,
			SubjectPrefix:  serverCfg.SubjectPrefix,
			PostfixAddr:    serverCfg.Postfix.Address,
			PostfixPort:    serverCfg.Postfix.Port,
			PostfixEnabled: serverCfg.Postfix.Enabled,
			Timeout:        serverCfg.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported filter type: %s", serverCfg.FilterType)
	}
}
