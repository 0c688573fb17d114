package bedrock

import (
	"context"
	"fmt"
	"strings"

	"github.com/applylens/inbox-policy/internal/adapters/advisor"
	"github.com/applylens/inbox-policy/internal/core"
	"github.com/applylens/inbox-policy/internal/utils"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"go.uber.org/zap"
)

// ConverseAPI is the subset of the Bedrock runtime client used here
type ConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockClient reviews classifications with an Amazon Bedrock model
type BedrockClient struct {
	client        ConverseAPI
	modelID       string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewBedrockClient creates a new Bedrock advisor
func NewBedrockClient(
	client ConverseAPI,
	modelID string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *BedrockClient {
	return &BedrockClient{
		client:        client,
		modelID:       modelID,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Review asks the model for a second opinion
func (c *BedrockClient) Review(ctx context.Context, email core.Email, result core.ClassificationResult) (*core.Advice, error) {
	body := c.textProcessor.ProcessText(email.BodyText, c.maxBodySize)
	prompt := advisor.BuildPrompt(email, result, body)

	out, err := c.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.modelID),
		System: []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: advisor.SystemPrompt},
		},
		Messages: []types.Message{
			{
				Role:    types.ConversationRoleUser,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: prompt}},
			},
		},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(int32(c.maxTokens)),
			Temperature: aws.Float32(c.temperature),
			TopP:        aws.Float32(c.topP),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return nil, fmt.Errorf("unexpected Bedrock output type %T", out.Output)
	}

	var text strings.Builder
	for _, block := range msg.Value.Content {
		if t, ok := block.(*types.ContentBlockMemberText); ok {
			text.WriteString(t.Value)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("empty response from Bedrock model %s", c.modelID)
	}

	c.logger.Debug("Bedrock review complete",
		zap.String("email_id", email.ID),
		zap.String("stop_reason", string(out.StopReason)))

	return advisor.ParseResponse(text.String(), c.modelID)
}
