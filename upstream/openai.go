package upstream

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient talks to OpenAI or any endpoint speaking its API.
type OpenAIClient struct {
	name   string
	client openai.Client
}

// NewOpenAI creates an OpenAI backend client. baseURL overrides the API
// endpoint (pass "" for the default).
func NewOpenAI(apiKey, baseURL string) *OpenAIClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIClient{name: "openai", client: openai.NewClient(opts...)}
}

// Name returns the backend name.
func (c *OpenAIClient) Name() string { return c.name }

// Complete sends a chat completion request. Fields from req.Params are
// spliced into the request body verbatim so callers can forward arbitrary
// tuning knobs without this layer knowing about them.
func (c *OpenAIClient) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	params := openai.ChatCompletionNewParams{
		Model:    req.Model,
		Messages: buildOpenAIMessages(req.Messages),
	}
	var opts []option.RequestOption
	for k, v := range req.Params {
		opts = append(opts, option.WithJSONSet(k, v))
	}

	completion, err := c.client.Chat.Completions.New(ctx, params, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s completion: %w", c.name, err)
	}
	return convertCompletion(completion), nil
}

// ListModels enumerates the models the backend offers.
func (c *OpenAIClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	page, err := c.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s models: %w", c.name, err)
	}
	models := make([]ModelInfo, 0, len(page.Data))
	for _, m := range page.Data {
		models = append(models, ModelInfo{
			ID:      m.ID,
			Object:  string(m.Object),
			Created: m.Created,
			OwnedBy: m.OwnedBy,
		})
	}
	return models, nil
}

// buildOpenAIMessages converts gateway messages to the SDK union type.
// Multipart content is flattened first; approaches only deal in plain text.
func buildOpenAIMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, msg := range msgs {
		flat := msg.FlatContent()
		switch msg.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(flat))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(flat))
		default:
			out = append(out, openai.UserMessage(flat))
		}
	}
	return out
}

func convertCompletion(completion *openai.ChatCompletion) *ChatResponse {
	resp := &ChatResponse{
		ID:      completion.ID,
		Object:  string(completion.Object),
		Created: completion.Created,
		Model:   completion.Model,
		Usage: Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}
	for i, choice := range completion.Choices {
		resp.Choices = append(resp.Choices, Choice{
			Index: i,
			Message: Message{
				Role:    string(choice.Message.Role),
				Content: choice.Message.Content,
			},
			FinishReason: string(choice.FinishReason),
		})
	}
	return resp
}
