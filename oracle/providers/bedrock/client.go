// Package bedrock implements core.AIClient against AWS Bedrock's Converse
// API, adapted from the teacher's ai/providers/bedrock/client.go: same
// aws-sdk-go-v2/bedrockruntime Converse call shape, trimmed of streaming
// (the Oracle contract spec.md §6 defines is request/response only).
package bedrock

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/itsneelabh/sentinel-swarm/core"
	"github.com/itsneelabh/sentinel-swarm/oracle"
)

// ModelClaude3Sonnet is the default Bedrock model id.
const ModelClaude3Sonnet = "anthropic.claude-3-sonnet-20240229-v1:0"

// Client implements core.AIClient for AWS Bedrock.
type Client struct {
	*oracle.BaseClient
	bedrockClient *bedrockruntime.Client
	region        string
}

// NewClient builds a Bedrock client from an already-resolved aws.Config
// (the caller is expected to have loaded credentials via
// config.LoadDefaultConfig, mirroring the teacher's CreateAWSConfig helper).
func NewClient(cfg aws.Config, region string, logger core.Logger) *Client {
	base := oracle.NewBaseClient(30*time.Second, logger)
	base.DefaultModel = ModelClaude3Sonnet
	base.DefaultMaxTokens = 1000
	return &Client{
		BaseClient:    base,
		bedrockClient: bedrockruntime.NewFromConfig(cfg),
		region:        region,
	}
}

// GenerateResponse issues a single-turn Converse request.
func (c *Client) GenerateResponse(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
	options = c.ApplyDefaults(options)
	c.LogRequest("bedrock", options.Model, prompt)
	start := time.Now()

	messages := []types.Message{
		{
			Role:    types.ConversationRoleUser,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: prompt}},
		},
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(options.Model),
		Messages: messages,
	}
	if options.SystemPrompt != "" {
		input.System = []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: options.SystemPrompt}}
	}

	inference := &types.InferenceConfiguration{}
	configured := false
	if options.MaxTokens > 0 {
		inference.MaxTokens = aws.Int32(int32(options.MaxTokens))
		configured = true
	}
	if options.Temperature > 0 {
		inference.Temperature = aws.Float32(options.Temperature)
		configured = true
	}
	if configured {
		input.InferenceConfig = inference
	}

	output, err := c.bedrockClient.Converse(ctx, input)
	if err != nil {
		c.LogError("bedrock", err)
		return nil, newBedrockError(err)
	}
	if output.Output == nil {
		return nil, fmt.Errorf("bedrock: no output in response")
	}

	var content string
	switch v := output.Output.(type) {
	case *types.ConverseOutputMemberMessage:
		for _, block := range v.Value.Content {
			if text, ok := block.(*types.ContentBlockMemberText); ok {
				content += text.Value
			}
		}
	default:
		return nil, fmt.Errorf("bedrock: unexpected output type in response")
	}
	if content == "" {
		return nil, fmt.Errorf("bedrock: no text content in response")
	}

	result := &core.AIResponse{Content: content, Model: options.Model, Provider: "bedrock"}
	if output.Usage != nil {
		result.Usage = core.TokenUsage{
			PromptTokens:     int(aws.ToInt32(output.Usage.InputTokens)),
			CompletionTokens: int(aws.ToInt32(output.Usage.OutputTokens)),
			TotalTokens:      int(aws.ToInt32(output.Usage.TotalTokens)),
		}
	}
	c.LogResponse("bedrock", result.Model, result.Usage, time.Since(start))
	return result, nil
}

func newBedrockError(err error) error {
	return fmt.Errorf("bedrock converse error: %w", err)
}
