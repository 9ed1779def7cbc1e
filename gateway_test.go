package reasongate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cortexflow-ai/reasongate/internal/modelspec"
	"github.com/cortexflow-ai/reasongate/upstream"
)

// fakeClient answers every completion with canned content and records the
// requests it received.
type fakeClient struct {
	content  string
	err      error
	requests []upstream.ChatRequest
}

func (c *fakeClient) Name() string { return "fake" }

func (c *fakeClient) Complete(_ context.Context, req upstream.ChatRequest) (*upstream.ChatResponse, error) {
	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	n := 1
	if v, ok := req.Params["n"].(int); ok {
		n = v
	}
	resp := &upstream.ChatResponse{
		ID:    "chatcmpl-fake",
		Model: req.Model,
		Usage: upstream.Usage{CompletionTokens: 3},
	}
	for i := 0; i < n; i++ {
		resp.Choices = append(resp.Choices, upstream.Choice{
			Index:   i,
			Message: upstream.Message{Role: upstream.RoleAssistant, Content: c.content},
		})
	}
	return resp, nil
}

func (c *fakeClient) ListModels(_ context.Context) ([]upstream.ModelInfo, error) {
	return []upstream.ModelInfo{{ID: "fake-model", Object: "model"}}, nil
}

func newTestGateway(t *testing.T, client upstream.Client) *Gateway {
	t.Helper()
	gw, err := NewWithClient(DefaultConfig(), client)
	if err != nil {
		t.Fatal(err)
	}
	return gw
}

func userMessage(text string) []upstream.Message {
	return []upstream.Message{{Role: upstream.RoleUser, Content: text}}
}

func TestComplete_PassthroughReturnsRawEnvelope(t *testing.T) {
	client := &fakeClient{content: "hello"}
	gw := newTestGateway(t, client)

	outcome, err := gw.Complete(context.Background(), Request{
		Model:    "gpt-4o-mini",
		Messages: userMessage("hi"),
		Params:   map[string]any{"temperature": 0.1},
	})
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Raw == nil || outcome.Raw.ID != "chatcmpl-fake" {
		t.Fatal("backend envelope not forwarded")
	}
	if outcome.Spec.Operation != modelspec.OpSingle || outcome.Spec.Approaches[0] != "none" {
		t.Errorf("spec = %+v", outcome.Spec)
	}
	if client.requests[0].Model != "gpt-4o-mini" {
		t.Errorf("backend model = %q", client.requests[0].Model)
	}
	if client.requests[0].Params["temperature"] != 0.1 {
		t.Errorf("params not forwarded: %v", client.requests[0].Params)
	}
}

func TestComplete_ApproachRunsAgainstBaseModel(t *testing.T) {
	client := &fakeClient{content: "result"}
	gw := newTestGateway(t, client)

	outcome, err := gw.Complete(context.Background(), Request{
		Model:    "re2-gpt-4o-mini",
		Messages: userMessage("question"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Raw != nil {
		t.Fatal("approach requests must not use the passthrough path")
	}
	if !outcome.Aggregate.Single || outcome.Aggregate.Contents[0] != "result" {
		t.Errorf("aggregate = %+v", outcome.Aggregate)
	}
	if outcome.Spec.Model != "gpt-4o-mini" {
		t.Errorf("base model = %q", outcome.Spec.Model)
	}
	if client.requests[0].Model != "gpt-4o-mini" {
		t.Errorf("backend saw %q", client.requests[0].Model)
	}
}

func TestComplete_BodyDirectiveComposesModel(t *testing.T) {
	client := &fakeClient{content: "r"}
	gw := newTestGateway(t, client)

	outcome, err := gw.Complete(context.Background(), Request{
		Model:    "gpt-4o-mini",
		Messages: userMessage("q"),
		Approach: "re2",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := outcome.Spec.Approaches; len(got) != 1 || got[0] != "re2" {
		t.Errorf("approaches = %v", got)
	}
	if outcome.Spec.Model != "gpt-4o-mini" {
		t.Errorf("base model = %q", outcome.Spec.Model)
	}
}

func TestComplete_InlineTagDirective(t *testing.T) {
	client := &fakeClient{content: "r"}
	gw := newTestGateway(t, client)

	outcome, err := gw.Complete(context.Background(), Request{
		Model:    "gpt-4o-mini",
		Messages: userMessage("<reason_approach>re2</reason_approach> what is 2+2?"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := outcome.Spec.Approaches; len(got) != 1 || got[0] != "re2" {
		t.Errorf("approaches = %v", got)
	}
	// The tag must not reach the backend prompt.
	prompt := client.requests[0].Messages[len(client.requests[0].Messages)-1].Content
	if strings.Contains(prompt, "reason_approach") {
		t.Errorf("tag leaked into the prompt: %q", prompt)
	}
	if !strings.Contains(prompt, "what is 2+2?") {
		t.Errorf("question lost from the prompt: %q", prompt)
	}
}

func TestComplete_InlineTagBeatsBodyDirective(t *testing.T) {
	client := &fakeClient{content: "r"}
	gw := newTestGateway(t, client)

	outcome, err := gw.Complete(context.Background(), Request{
		Model:    "gpt-4o-mini",
		Messages: userMessage("<reason_approach>re2</reason_approach> question"),
		Approach: "moa",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := outcome.Spec.Approaches; got[0] != "re2" {
		t.Errorf("approaches = %v, inline tag must win", got)
	}
	// re2 makes one backend call per read; no call may carry the tag.
	for i, req := range client.requests {
		for _, msg := range req.Messages {
			if strings.Contains(msg.FlatContent(), "reason_approach") {
				t.Errorf("call %d: tag leaked into the prompt: %q", i, msg.FlatContent())
			}
		}
	}
}

func TestComplete_TagStrippedEvenWhenBodyDirectiveSet(t *testing.T) {
	client := &fakeClient{content: "r"}
	gw := newTestGateway(t, client)

	_, err := gw.Complete(context.Background(), Request{
		Model:    "gpt-4o-mini",
		Messages: userMessage("<reason_approach>re2</reason_approach> question"),
		Approach: "re2",
	})
	if err != nil {
		t.Fatal(err)
	}
	for i, req := range client.requests {
		for _, msg := range req.Messages {
			if strings.Contains(msg.FlatContent(), "reason_approach") {
				t.Errorf("call %d: tag leaked into the prompt: %q", i, msg.FlatContent())
			}
			if msg.Role == upstream.RoleUser && !strings.Contains(msg.FlatContent(), "question") {
				t.Errorf("call %d: question lost from the prompt: %q", i, msg.FlatContent())
			}
		}
	}
}

func TestComplete_AutoDirectiveLeavesModelAlone(t *testing.T) {
	client := &fakeClient{content: "r"}
	gw := newTestGateway(t, client)

	outcome, err := gw.Complete(context.Background(), Request{
		Model:    "gpt-4o-mini",
		Messages: userMessage("q"),
		Approach: "auto",
	})
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Raw == nil {
		t.Error("auto with a plain model means passthrough")
	}
}

func TestComplete_RepeatAggregates(t *testing.T) {
	client := &fakeClient{content: "same"}
	gw := newTestGateway(t, client)

	outcome, err := gw.Complete(context.Background(), Request{
		Model:    "re2-gpt-4o-mini",
		Messages: userMessage("q"),
		Repeat:   3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(outcome.Aggregate.Contents) != 3 || outcome.Aggregate.Single {
		t.Errorf("aggregate = %+v", outcome.Aggregate)
	}
	if outcome.Aggregate.Tokens != 9 {
		t.Errorf("tokens = %d, want 9", outcome.Aggregate.Tokens)
	}
}

func TestComplete_BackendErrorPropagates(t *testing.T) {
	boom := errors.New("backend down")
	gw := newTestGateway(t, &fakeClient{err: boom})

	_, err := gw.Complete(context.Background(), Request{
		Model:    "gpt-4o-mini",
		Messages: userMessage("q"),
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the backend error, got %v", err)
	}
}

func TestComplete_SystemPromptReachesApproaches(t *testing.T) {
	client := &fakeClient{content: "r"}
	gw := newTestGateway(t, client)

	_, err := gw.Complete(context.Background(), Request{
		Model: "re2-gpt-4o-mini",
		Messages: []upstream.Message{
			{Role: upstream.RoleSystem, Content: "answer in French"},
			{Role: upstream.RoleUser, Content: "q"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if client.requests[0].Messages[0].Role != upstream.RoleSystem ||
		client.requests[0].Messages[0].Content != "answer in French" {
		t.Errorf("system prompt lost: %+v", client.requests[0].Messages)
	}
}

func TestNewWithClient_RejectsUnknownLogDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RequestLog.Driver = "mysql"
	if _, err := NewWithClient(cfg, &fakeClient{}); err == nil {
		t.Fatal("expected an error for an unknown request log driver")
	}
}

func TestResolveClient_BearerOverride(t *testing.T) {
	gw := newTestGateway(t, &fakeClient{})
	if gw.resolveClient("sk-user-supplied") == gw.client {
		t.Error("a provider-key bearer must swap in a per-request client")
	}
	if gw.resolveClient("gateway-auth-token") != gw.client {
		t.Error("other bearers must keep the server's client")
	}
	if gw.resolveClient("") != gw.client {
		t.Error("no bearer must keep the server's client")
	}
}

func TestListModels_Proxies(t *testing.T) {
	gw := newTestGateway(t, &fakeClient{content: "x"})
	models, err := gw.ListModels(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(models) != 1 || models[0].ID != "fake-model" {
		t.Errorf("models = %+v", models)
	}
}
