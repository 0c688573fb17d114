package di

import (
	"context"
	"fmt"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/applylens/inbox-policy/internal/adapters/httpapi"
	"github.com/applylens/inbox-policy/internal/classifier"
	"github.com/applylens/inbox-policy/internal/config"
	"github.com/applylens/inbox-policy/internal/core"
	"github.com/applylens/inbox-policy/internal/factory"
	"github.com/applylens/inbox-policy/internal/inbox"
	"github.com/applylens/inbox-policy/internal/logging"
	"github.com/applylens/inbox-policy/internal/ports"
	"github.com/applylens/inbox-policy/internal/safety"
	"github.com/applylens/inbox-policy/internal/utils"
	"github.com/applylens/inbox-policy/internal/whitelist"
)

// BuildContainer creates the dependency injection container for the daemon
func BuildContainer(configPath string) (*dig.Container, error) {
	container := dig.New()

	if err := container.Provide(func() (*config.Config, error) {
		cfg, err := config.New(configPath)
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideCore(container); err != nil {
		return nil, err
	}

	if err := container.Provide(factory.NewFilterFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.FilterFactory) (ports.EmailFilter, error) {
		return f.CreateEmailFilter()
	}); err != nil {
		return nil, err
	}

	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger, svc *inbox.Service, store factory.AuditStore) *httpapi.Server {
		httpCfg := cfg.GetHTTP()
		if !httpCfg.Enabled {
			return nil
		}
		return httpapi.NewServer(svc, factory.Repository(store), logger, httpCfg.ListenAddress, httpCfg.Mode)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideCore registers everything the daemon and the CLI share, from the
// factories up to the pipeline service
func provideCore(container *dig.Container) error {
	constructors := []interface{}{
		factory.NewTextProcessorFactory,
		factory.NewClassifierFactory,
		factory.NewDatabaseFactory,
		factory.NewAuditFactory,
		factory.NewPolicyFactory,
		factory.NewNotifierFactory,
		factory.NewAdvisorFactory,
		func(f *factory.TextProcessorFactory) *utils.TextProcessor {
			return f.CreateTextProcessor()
		},
		func(f *factory.ClassifierFactory) *classifier.Classifier {
			return f.CreateClassifier()
		},
		func(f *factory.ClassifierFactory) *whitelist.Checker {
			return f.CreateWhitelist()
		},
		func(f *factory.AuditFactory) (factory.AuditStore, error) {
			return f.CreateAuditStore()
		},
		func(f *factory.PolicyFactory) (core.PolicySource, error) {
			return f.CreatePolicySource()
		},
		func(f *factory.NotifierFactory) (core.Notifier, error) {
			return f.CreateNotifier()
		},
		func(f *factory.AdvisorFactory) (core.Advisor, error) {
			return f.CreateAdvisor()
		},
		newService,
		func(s *inbox.Service) ports.Pipeline {
			return s
		},
	}

	for _, c := range constructors {
		if err := container.Provide(c); err != nil {
			return err
		}
	}
	return nil
}

type serviceParams struct {
	dig.In

	Config     *config.Config
	Logger     *zap.Logger
	Classifier *classifier.Classifier
	Whitelist  *whitelist.Checker
	Audit      factory.AuditStore
	Source     core.PolicySource
	Notifier   core.Notifier
	Advisor    core.Advisor
}

func newService(p serviceParams) (*inbox.Service, error) {
	policies, err := p.Source.Load(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to load policies: %w", err)
	}

	opts := []inbox.Option{
		inbox.WithWorkers(p.Config.GetPipeline().Workers),
		inbox.WithWhitelist(p.Whitelist),
	}
	if p.Notifier != nil {
		opts = append(opts, inbox.WithNotifier(p.Notifier))
	}
	if p.Advisor != nil {
		opts = append(opts, inbox.WithAdvisor(p.Advisor))
	}

	return inbox.NewService(
		p.Classifier,
		policies,
		safety.NewGate(),
		factory.Repository(p.Audit),
		p.Logger,
		opts...,
	), nil
}
