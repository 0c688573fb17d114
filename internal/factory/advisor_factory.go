package factory

import (
	"context"
	"fmt"

	"github.com/applylens/inbox-policy/internal/adapters/bedrock"
	"github.com/applylens/inbox-policy/internal/adapters/gemini"
	"github.com/applylens/inbox-policy/internal/adapters/openai"
	"github.com/applylens/inbox-policy/internal/config"
	"github.com/applylens/inbox-policy/internal/core"
	"github.com/applylens/inbox-policy/internal/utils"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"
)

// AdvisorFactory creates the optional LLM advisor
type AdvisorFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewAdvisorFactory creates a new advisor factory
func NewAdvisorFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *AdvisorFactory {
	return &AdvisorFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateAdvisor creates the configured advisor, or nil when disabled
func (f *AdvisorFactory) CreateAdvisor() (core.Advisor, error) {
	advisorCfg := f.cfg.GetAdvisor()
	if !advisorCfg.Enabled {
		return nil, nil
	}

	var (
		advisor core.Advisor
		err     error
	)
	switch advisorCfg.Provider {
	case "bedrock":
		advisor, err = f.createBedrock()
	case "gemini":
		advisor, err = f.createGemini()
	case "openai":
		advisor, err = f.createOpenAI()
	default:
		return nil, fmt.Errorf("unsupported advisor provider: %s", advisorCfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	f.logger.Info("Advisor enabled", zap.String("provider", advisorCfg.Provider))
	return advisor, nil
}

func (f *AdvisorFactory) createBedrock() (core.Advisor, error) {
	bedrockCfg := f.cfg.GetBedrock()

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(bedrockCfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return bedrock.NewBedrockClient(
		bedrockruntime.NewFromConfig(awsCfg),
		bedrockCfg.ModelID,
		bedrockCfg.MaxTokens,
		bedrockCfg.Temperature,
		bedrockCfg.TopP,
		bedrockCfg.MaxBodySize,
		f.logger,
		f.textProcessor,
	), nil
}

func (f *AdvisorFactory) createGemini() (core.Advisor, error) {
	geminiCfg := f.cfg.GetGemini()
	if geminiCfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	return gemini.NewGeminiClient(
		context.Background(),
		geminiCfg.APIKey,
		geminiCfg.ModelName,
		geminiCfg.MaxTokens,
		geminiCfg.Temperature,
		geminiCfg.TopP,
		geminiCfg.MaxBodySize,
		f.logger,
		f.textProcessor,
	)
}

func (f *AdvisorFactory) createOpenAI() (core.Advisor, error) {
	openaiCfg := f.cfg.GetOpenAI()
	if openaiCfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	return openai.NewOpenAIClient(
		openaiCfg.APIKey,
		openaiCfg.BaseURL,
		openaiCfg.ModelName,
		openaiCfg.MaxTokens,
		openaiCfg.Temperature,
		openaiCfg.TopP,
		openaiCfg.MaxBodySize,
		f.logger,
		f.textProcessor,
	), nil
}
