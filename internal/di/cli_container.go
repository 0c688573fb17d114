package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/applylens/inbox-policy/internal/config"
	"github.com/applylens/inbox-policy/internal/logging"
)

// CLIFlags contains the global flags of the CLI application
type CLIFlags struct {
	ConfigFile string
	PolicyFile string
	AuditType  string
	Advisor    string
	Verbose    bool
	JSONLog    bool
}

// BuildCLIContainer creates the dependency injection container for the CLI.
// Without a config file the CLI runs on defaults with an in-memory audit
// store, no notifications and no mail filter.
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		var cfg *config.Config
		if flags.ConfigFile != "" {
			loaded, err := config.New(flags.ConfigFile)
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", loaded.GetViper().ConfigFileUsed()))
			cfg = loaded
		} else {
			cfg = createConfigFromFlags()
		}
		applyFlagOverrides(cfg, flags)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	if err := provideCore(container); err != nil {
		return nil, err
	}

	return container, nil
}

func createConfigFromFlags() *config.Config {
	v := config.NewEmptyViper()
	v.Set("server.filter_type", "none")
	v.Set("http.enabled", false)
	v.Set("notify.type", "none")
	v.Set("audit.type", "memory")
	v.Set("audit.retention", "0s")
	v.Set("policy.watch", false)
	return config.NewFromViper(v)
}

func applyFlagOverrides(cfg *config.Config, flags *CLIFlags) {
	if flags.PolicyFile != "" {
		cfg.Set("policy.source", "file")
		cfg.Set("policy.file", flags.PolicyFile)
	}
	if flags.AuditType != "" {
		cfg.Set("audit.type", flags.AuditType)
	}
	if flags.Advisor != "" {
		cfg.Set("advisor.enabled", true)
		cfg.Set("advisor.provider", flags.Advisor)
	}
	if flags.Verbose {
		cfg.Set("logging.level", "debug")
	}
}
