// Package daemon runs the long-lived pipeline: the mail filter, the HTTP API
// and the policy file watcher, until a shutdown signal arrives.
package daemon

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/applylens/inbox-policy/internal/adapters/httpapi"
	"github.com/applylens/inbox-policy/internal/core"
	"github.com/applylens/inbox-policy/internal/factory"
	"github.com/applylens/inbox-policy/internal/inbox"
	"github.com/applylens/inbox-policy/internal/ports"
)

// ShutdownTimeout bounds the graceful HTTP shutdown
const ShutdownTimeout = 10 * time.Second

// Params are the daemon dependencies. Filter, Server, Advisor and Audit may
// be nil when disabled in the configuration.
type Params struct {
	dig.In

	Logger        *zap.Logger
	Filter        ports.EmailFilter
	Server        *httpapi.Server
	Service       *inbox.Service
	Source        core.PolicySource
	PolicyFactory *factory.PolicyFactory
	Database      *factory.DatabaseFactory
	Audit         factory.AuditStore
	Advisor       core.Advisor
}

// Run starts every enabled component and blocks until SIGINT or SIGTERM
func Run(p Params) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return RunContext(ctx, p)
}

// RunContext is Run with an explicit lifetime
func RunContext(ctx context.Context, p Params) error {
	logger := p.Logger
	defer logger.Sync()

	logger.Info("Starting inbox policy daemon", zap.Int("policies", len(p.Service.Policies())))

	watcher, err := p.PolicyFactory.CreateWatcher(p.Source, p.Service.SetPolicies)
	if err != nil {
		logger.Error("Failed to create policy watcher", zap.Error(err))
		return err
	}
	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	if watcher != nil {
		go func() {
			if err := watcher.Run(watchCtx); err != nil && ctx.Err() == nil {
				logger.Error("Policy watcher stopped", zap.Error(err))
			}
		}()
	}

	if p.Filter != nil {
		if err := p.Filter.Start(); err != nil {
			logger.Error("Failed to start filter", zap.Error(err))
			return err
		}
	}

	if p.Server != nil {
		if err := p.Server.Start(); err != nil {
			logger.Error("Failed to start HTTP API", zap.Error(err))
			return err
		}
	}

	if p.Filter == nil && p.Server == nil {
		logger.Warn("No mail filter or HTTP API enabled, only the policy watcher is running")
	}

	<-ctx.Done()
	logger.Info("Shutting down...")

	cancelWatch()

	if p.Server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		if err := p.Server.Stop(shutdownCtx); err != nil {
			logger.Error("Failed to stop HTTP API", zap.Error(err))
		}
		cancel()
	}

	if p.Filter != nil {
		if err := p.Filter.Stop(); err != nil {
			logger.Error("Failed to stop filter", zap.Error(err))
		}
	}

	// Close any resources that need closing
	if closer, ok := p.Advisor.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close advisor", zap.Error(err))
		}
	}

	if p.Audit != nil {
		p.Audit.Stop()
	}

	if err := p.Database.Close(); err != nil {
		logger.Error("Failed to close database", zap.Error(err))
	}

	logger.Info("Shutdown complete")
	return nil
}
