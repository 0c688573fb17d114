package factory

import (
	"fmt"

	"github.com/applylens/inbox-policy/internal/adapters/notify"
	"github.com/applylens/inbox-policy/internal/config"
	"github.com/applylens/inbox-policy/internal/core"
	"go.uber.org/zap"
)

// NotifierFactory creates notifiers based on configuration
type NotifierFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewNotifierFactory creates a new notifier factory
func NewNotifierFactory(cfg *config.Config, logger *zap.Logger) *NotifierFactory {
	return &NotifierFactory{cfg: cfg, logger: logger}
}

// CreateNotifier creates the configured notifier, or nil for none
func (f *NotifierFactory) CreateNotifier() (core.Notifier, error) {
	notifyCfg := f.cfg.GetNotify()

	switch notifyCfg.Type {
	case "none":
		return nil, nil
	case "log":
		return notify.NewLogNotifier(f.logger), nil
	case "sendgrid":
		sg := notifyCfg.SendGrid
		sender, err := notify.NewSendGridNotifier(sg.APIKey, sg.FromName, sg.FromAddress, sg.ToAddress, f.logger)
		if err != nil {
			return nil, err
		}
		return notify.Multi{notify.NewLogNotifier(f.logger), sender}, nil
	default:
		return nil, fmt.Errorf("unsupported notify type: %s", notifyCfg.Type)
	}
}
