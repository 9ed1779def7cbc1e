package upstream

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// BedrockClient talks to AWS Bedrock via the Converse API, which normalises
// the per-family body formats (Claude, Titan, Llama) behind one call.
type BedrockClient struct {
	client *bedrockruntime.Client
	region string
}

// NewBedrock creates an AWS Bedrock backend client. region defaults to
// us-east-1. Credentials come from the default AWS chain.
func NewBedrock(ctx context.Context, region string) (*BedrockClient, error) {
	if region == "" {
		region = "us-east-1"
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &BedrockClient{client: bedrockruntime.NewFromConfig(cfg), region: region}, nil
}

// Name returns the backend name.
func (c *BedrockClient) Name() string { return "bedrock" }

// Complete sends a chat completion request through the Converse API.
// Only the numeric tuning knobs Converse understands are mapped from
// req.Params; the rest have no Bedrock equivalent and are ignored.
func (c *BedrockClient) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var system []types.SystemContentBlock
	var messages []types.Message
	for _, msg := range req.Messages {
		flat := msg.FlatContent()
		switch msg.Role {
		case RoleSystem:
			system = append(system, &types.SystemContentBlockMemberText{Value: flat})
		case RoleAssistant:
			messages = append(messages, types.Message{
				Role:    types.ConversationRoleAssistant,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: flat}},
			})
		default:
			messages = append(messages, types.Message{
				Role:    types.ConversationRoleUser,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: flat}},
			})
		}
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:         aws.String(req.Model),
		Messages:        messages,
		System:          system,
		InferenceConfig: inferenceConfig(req.Params),
	}

	out, err := c.client.Converse(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("bedrock converse: %w", err)
	}

	var content string
	if msg, ok := out.Output.(*types.ConverseOutputMemberMessage); ok {
		for _, block := range msg.Value.Content {
			if text, ok := block.(*types.ContentBlockMemberText); ok {
				content += text.Value
			}
		}
	}

	resp := &ChatResponse{
		ID:      fmt.Sprintf("bedrock-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []Choice{{
			Index:        0,
			Message:      Message{Role: RoleAssistant, Content: content},
			FinishReason: finishReason(out.StopReason),
		}},
	}
	if out.Usage != nil {
		resp.Usage = Usage{
			PromptTokens:     int(aws.ToInt32(out.Usage.InputTokens)),
			CompletionTokens: int(aws.ToInt32(out.Usage.OutputTokens)),
			TotalTokens:      int(aws.ToInt32(out.Usage.TotalTokens)),
		}
	}
	return resp, nil
}

func inferenceConfig(params map[string]any) *types.InferenceConfiguration {
	if len(params) == 0 {
		return nil
	}
	cfg := &types.InferenceConfiguration{}
	set := false
	if v, ok := toFloat(params["temperature"]); ok {
		cfg.Temperature = aws.Float32(float32(v))
		set = true
	}
	if v, ok := toFloat(params["top_p"]); ok {
		cfg.TopP = aws.Float32(float32(v))
		set = true
	}
	if v, ok := toFloat(params["max_tokens"]); ok {
		cfg.MaxTokens = aws.Int32(int32(v))
		set = true
	}
	if !set {
		return nil
	}
	return cfg
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func finishReason(reason types.StopReason) string {
	switch reason {
	case types.StopReasonMaxTokens:
		return "length"
	default:
		return "stop"
	}
}

// ListModels returns well-known Bedrock model IDs. Bedrock has no
// OpenAI-style models endpoint on the runtime service.
func (c *BedrockClient) ListModels(_ context.Context) ([]ModelInfo, error) {
	return ModelsFromList("bedrock", []string{
		"anthropic.claude-3-5-sonnet-20241022-v2:0",
		"anthropic.claude-3-5-haiku-20241022-v1:0",
		"anthropic.claude-3-opus-20240229-v1:0",
		"amazon.titan-text-express-v1",
		"amazon.titan-text-premier-v1:0",
		"meta.llama3-1-405b-instruct-v1:0",
		"meta.llama3-1-70b-instruct-v1:0",
		"meta.llama3-1-8b-instruct-v1:0",
	}), nil
}
