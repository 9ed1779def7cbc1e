package approach

import (
	"context"
	"strings"
	"testing"

	"github.com/cortexflow-ai/reasongate/upstream"
)

// scriptClient replays canned responses in order and records every request.
type scriptClient struct {
	responses []*upstream.ChatResponse
	requests  []upstream.ChatRequest
	err       error
}

func (c *scriptClient) Name() string { return "script" }

func (c *scriptClient) Complete(_ context.Context, req upstream.ChatRequest) (*upstream.ChatResponse, error) {
	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	i := len(c.requests) - 1
	if i >= len(c.responses) {
		i = len(c.responses) - 1
	}
	return c.responses[i], nil
}

func (c *scriptClient) ListModels(_ context.Context) ([]upstream.ModelInfo, error) {
	return nil, nil
}

func textResponse(tokens int, contents ...string) *upstream.ChatResponse {
	resp := &upstream.ChatResponse{
		ID:    "chatcmpl-test",
		Model: "test-model",
		Usage: upstream.Usage{CompletionTokens: tokens},
	}
	for i, c := range contents {
		resp.Choices = append(resp.Choices, upstream.Choice{
			Index:   i,
			Message: upstream.Message{Role: upstream.RoleAssistant, Content: c},
		})
	}
	return resp
}

func TestRunNone_Passthrough(t *testing.T) {
	client := &scriptClient{responses: []*upstream.ChatResponse{textResponse(9, "answer")}}
	call := Call{
		Client: client,
		Model:  "none-gpt-4o-mini",
		Messages: []upstream.Message{
			{Role: upstream.RoleSystem, Content: "sys"},
			{Role: upstream.RoleUser, ContentParts: []upstream.ContentPart{
				{Type: upstream.ContentTypeText, Text: "part a"},
				{Type: upstream.ContentTypeText, Text: "part b"},
			}},
		},
		Params: map[string]any{"temperature": 0.5, "max_tokens": 64},
	}

	res, err := runNone(context.Background(), call)
	if err != nil {
		t.Fatal(err)
	}

	req := client.requests[0]
	if req.Model != "gpt-4o-mini" {
		t.Errorf("model = %q, the approach prefix must be stripped", req.Model)
	}
	if req.Messages[1].Content != "part a part b" {
		t.Errorf("multipart content not flattened: %q", req.Messages[1].Content)
	}
	if req.Params["temperature"] != 0.5 {
		t.Errorf("params not forwarded: %v", req.Params)
	}

	if res.Tokens != 0 {
		t.Errorf("passthrough accounts zero tokens at this layer, got %d", res.Tokens)
	}
	if res.Response == nil || res.Response.ID != "chatcmpl-test" {
		t.Error("backend envelope not forwarded")
	}
	if res.Content != "answer" {
		t.Errorf("content = %q", res.Content)
	}
}

func TestRunRe2_RepeatsTheQuestion(t *testing.T) {
	client := &scriptClient{responses: []*upstream.ChatResponse{textResponse(4, "42")}}
	call := Call{Client: client, Model: "m", Query: "what is six times seven?"}

	res, err := runRe2(context.Background(), call)
	if err != nil {
		t.Fatal(err)
	}
	prompt := client.requests[0].Messages[0].Content
	if strings.Count(prompt, "what is six times seven?") != 2 {
		t.Errorf("question not repeated: %q", prompt)
	}
	if res.Content != "42" || res.Tokens != 4 {
		t.Errorf("got %q / %d tokens", res.Content, res.Tokens)
	}
	if res.Contents != nil {
		t.Errorf("single sample must not set Contents: %v", res.Contents)
	}
}

func TestRunRe2_MultiSample(t *testing.T) {
	client := &scriptClient{responses: []*upstream.ChatResponse{textResponse(8, "a", "b", "c")}}
	call := Call{Client: client, Model: "m", Query: "q", Defaults: Defaults{N: 3}}

	res, err := runRe2(context.Background(), call)
	if err != nil {
		t.Fatal(err)
	}
	if client.requests[0].Params["n"] != 3 {
		t.Errorf("n not forwarded: %v", client.requests[0].Params)
	}
	if len(res.Contents) != 3 || res.Content != "a" {
		t.Errorf("got %v / %q", res.Contents, res.Content)
	}
}

func TestRunCoTReflection_ExtractsOutput(t *testing.T) {
	full := "<thinking>steps</thinking><reflection>fine</reflection><output>  the answer  </output>"
	client := &scriptClient{responses: []*upstream.ChatResponse{textResponse(5, full)}}
	call := Call{Client: client, Model: "m", Query: "q"}

	res, err := runCoTReflection(context.Background(), call)
	if err != nil {
		t.Fatal(err)
	}
	if res.Content != "the answer" {
		t.Errorf("content = %q", res.Content)
	}
}

func TestRunCoTReflection_UnterminatedOutput(t *testing.T) {
	full := "<thinking>steps</thinking><output>truncated answer"
	client := &scriptClient{responses: []*upstream.ChatResponse{textResponse(5, full)}}

	res, err := runCoTReflection(context.Background(), Call{Client: client, Model: "m", Query: "q"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Content != "truncated answer" {
		t.Errorf("content = %q", res.Content)
	}
}

func TestRunCoTReflection_ReturnFullFromConfig(t *testing.T) {
	full := "<thinking>steps</thinking><output>short</output>"
	client := &scriptClient{responses: []*upstream.ChatResponse{textResponse(5, full)}}
	call := Call{
		Client: client,
		Model:  "m",
		Query:  "q",
		Config: map[string]any{"return_full_response": true},
	}

	res, err := runCoTReflection(context.Background(), call)
	if err != nil {
		t.Fatal(err)
	}
	if res.Content != full {
		t.Errorf("content = %q, want the untrimmed response", res.Content)
	}
}

func TestRunBestOfN_PicksRatedCandidate(t *testing.T) {
	client := &scriptClient{responses: []*upstream.ChatResponse{
		textResponse(12, "weak", "strong", "middling"),
		textResponse(1, "The best candidate is 2."),
	}}
	call := Call{Client: client, Model: "m", Query: "q", Defaults: Defaults{BestOfN: 3}}

	res, err := runBestOfN(context.Background(), call)
	if err != nil {
		t.Fatal(err)
	}
	if res.Content != "strong" {
		t.Errorf("content = %q", res.Content)
	}
	if res.Tokens != 13 {
		t.Errorf("tokens = %d, want 13", res.Tokens)
	}
	if client.requests[0].Params["n"] != 3 || client.requests[0].Params["temperature"] != 1.0 {
		t.Errorf("sampling params: %v", client.requests[0].Params)
	}
}

func TestRunBestOfN_GarbageRatingFallsBackToFirst(t *testing.T) {
	client := &scriptClient{responses: []*upstream.ChatResponse{
		textResponse(6, "first", "second"),
		textResponse(1, "no preference"),
	}}

	res, err := runBestOfN(context.Background(), Call{Client: client, Model: "m", Query: "q", Defaults: Defaults{BestOfN: 2}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Content != "first" {
		t.Errorf("content = %q", res.Content)
	}
}

func TestRunSelfConsistency_MajorityWins(t *testing.T) {
	client := &scriptClient{responses: []*upstream.ChatResponse{
		textResponse(10, "Paris", "paris  ", "London", "PARIS", "Berlin"),
	}}

	res, err := runSelfConsistency(context.Background(), Call{Client: client, Model: "m", Query: "q"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Content != "Paris" {
		t.Errorf("content = %q, the earliest spelling of the majority answer must win", res.Content)
	}
}

func TestRunMixtureOfAgents_SynthesisFlow(t *testing.T) {
	client := &scriptClient{responses: []*upstream.ChatResponse{
		textResponse(9, "draft one", "draft two", "draft three"),
		textResponse(4, "draft two is the strongest"),
		textResponse(3, "final synthesis"),
	}}

	res, err := runMixtureOfAgents(context.Background(), Call{Client: client, Model: "m", Query: "q"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Content != "final synthesis" {
		t.Errorf("content = %q", res.Content)
	}
	if res.Tokens != 16 {
		t.Errorf("tokens = %d, want 16", res.Tokens)
	}
	if len(client.requests) != 3 {
		t.Fatalf("requests = %d, want candidates, critique, synthesis", len(client.requests))
	}
	critique := client.requests[1].Messages[len(client.requests[1].Messages)-1].Content
	if !strings.Contains(critique, "draft one") || !strings.Contains(critique, "draft three") {
		t.Errorf("critique prompt missing candidates: %q", critique)
	}
}
