package openai

import (
	"context"
	"fmt"

	"github.com/applylens/inbox-policy/internal/adapters/advisor"
	"github.com/applylens/inbox-policy/internal/core"
	"github.com/applylens/inbox-policy/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient reviews classifications with an OpenAI chat model
type OpenAIClient struct {
	client        *openai.Client
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewOpenAIClient creates a new OpenAI advisor. A non-empty baseURL targets an
// OpenAI-compatible endpoint.
func NewOpenAIClient(
	apiKey string,
	baseURL string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIClient{
		client:        openai.NewClientWithConfig(cfg),
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Review asks the model for a second opinion
func (c *OpenAIClient) Review(ctx context.Context, email core.Email, result core.ClassificationResult) (*core.Advice, error) {
	body := c.textProcessor.ProcessText(email.BodyText, c.maxBodySize)

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: advisor.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: advisor.BuildPrompt(email, result, body)},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	c.logger.Debug("OpenAI review complete",
		zap.String("email_id", email.ID),
		zap.String("request_id", resp.ID),
		zap.Int("total_tokens", resp.Usage.TotalTokens))

	return advisor.ParseResponse(resp.Choices[0].Message.Content, c.modelName)
}
