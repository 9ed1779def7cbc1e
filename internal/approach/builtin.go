package approach

import (
	"context"
	"fmt"

	"github.com/cortexflow-ai/reasongate/upstream"
)

// builtinEntries returns the fixed built-in approach set. Heavier research
// techniques (mcts, rstar, z3, ...) are not built in; they arrive as
// extensions through the manifest loader.
func builtinEntries() []Entry {
	return []Entry{
		{Slug: SlugNone, Kind: CallSync, Run: runNone},
		{Slug: "re2", Kind: CallSync, Run: runRe2},
		{Slug: "cot_reflection", Kind: CallSyncConfig, Run: runCoTReflection},
		{Slug: "bon", Kind: CallSync, Run: runBestOfN},
		{Slug: "moa", Kind: CallSync, Run: runMixtureOfAgents},
		{Slug: "self_consistency", Kind: CallSync, Run: runSelfConsistency},
	}
}

// chat issues one completion with the call's system prompt and the given
// user content. params may be nil.
func chat(ctx context.Context, call Call, userContent string, params map[string]any) (*upstream.ChatResponse, error) {
	var messages []upstream.Message
	if call.SystemPrompt != "" {
		messages = append(messages, upstream.Message{Role: upstream.RoleSystem, Content: call.SystemPrompt})
	}
	messages = append(messages, upstream.Message{Role: upstream.RoleUser, Content: userContent})

	resp, err := call.Client.Complete(ctx, upstream.ChatRequest{
		Model:    call.Model,
		Messages: messages,
		Params:   params,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("backend returned no choices for model %s", call.Model)
	}
	return resp, nil
}

// contents extracts the message content of every choice, in order.
func contents(resp *upstream.ChatResponse) []string {
	out := make([]string, 0, len(resp.Choices))
	for _, c := range resp.Choices {
		out = append(out, c.Message.Content)
	}
	return out
}
