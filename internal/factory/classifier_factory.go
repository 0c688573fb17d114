package factory

import (
	"github.com/applylens/inbox-policy/internal/classifier"
	"github.com/applylens/inbox-policy/internal/config"
	"github.com/applylens/inbox-policy/internal/features"
	"github.com/applylens/inbox-policy/internal/utils"
	"github.com/applylens/inbox-policy/internal/whitelist"
	"go.uber.org/zap"
)

// ClassifierFactory builds the feature extractor and classifier
type ClassifierFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewClassifierFactory creates a new classifier factory
func NewClassifierFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *ClassifierFactory {
	return &ClassifierFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateClassifier builds a classifier with configured domain lists added to
// the defaults
func (f *ClassifierFactory) CreateClassifier() *classifier.Classifier {
	clfCfg := f.cfg.GetClassifier()

	fc := features.DefaultConfig()
	fc.ATSDomains = append(fc.ATSDomains, clfCfg.ATSDomains...)
	fc.ShortenerDomains = append(fc.ShortenerDomains, clfCfg.ShortenerDomains...)
	if clfCfg.MaxBodySize > 0 {
		fc.MaxBodySize = clfCfg.MaxBodySize
	}

	extractor := features.NewExtractor(fc, f.textProcessor, f.logger)
	return classifier.New(extractor, f.logger)
}

// CreateWhitelist builds the sender whitelist
func (f *ClassifierFactory) CreateWhitelist() *whitelist.Checker {
	domains := f.cfg.GetClassifier().WhitelistedDomains
	if len(domains) > 0 {
		f.logger.Info("Loaded whitelisted domains", zap.Strings("domains", domains))
	}
	return whitelist.NewChecker(domains, f.logger)
}
