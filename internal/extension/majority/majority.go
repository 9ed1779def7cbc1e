// Package majority provides the majority_voting extension approach: sample
// k completions and return the most frequent answer. Register it by blank
// import and bind a slug to the "majority_voting" factory in a manifest.
package majority

import (
	"context"
	"fmt"
	"strings"

	"github.com/cortexflow-ai/reasongate/internal/approach"
	"github.com/cortexflow-ai/reasongate/internal/extension"
	"github.com/cortexflow-ai/reasongate/upstream"
)

const defaultSamples = 6

func init() {
	extension.RegisterFactory("majority_voting", New)
}

// New builds the majority-voting entry. Config keys: "k" (sample count,
// default 6), "temperature" (default 1.0). The per-request config may
// override "k".
func New(config map[string]any) (approach.Entry, error) {
	k := intOr(config["k"], defaultSamples)
	if k < 1 {
		return approach.Entry{}, fmt.Errorf("k must be positive, got %d", k)
	}
	temp := 1.0
	if v, ok := config["temperature"].(float64); ok {
		temp = v
	}

	run := func(ctx context.Context, call approach.Call) (approach.Result, error) {
		samples := intOr(call.Config["k"], k)

		var messages []upstream.Message
		if call.SystemPrompt != "" {
			messages = append(messages, upstream.Message{Role: upstream.RoleSystem, Content: call.SystemPrompt})
		}
		messages = append(messages, upstream.Message{Role: upstream.RoleUser, Content: call.Query})

		resp, err := call.Client.Complete(ctx, upstream.ChatRequest{
			Model:    call.Model,
			Messages: messages,
			Params:   map[string]any{"n": samples, "temperature": temp},
		})
		if err != nil {
			return approach.Result{}, fmt.Errorf("majority_voting: %w", err)
		}
		if len(resp.Choices) == 0 {
			return approach.Result{}, fmt.Errorf("majority_voting: backend returned no choices")
		}

		counts := map[string]int{}
		first := map[string]string{}
		winner, winnerCount := resp.Choices[0].Message.Content, 0
		for _, c := range resp.Choices {
			key := strings.Join(strings.Fields(strings.ToLower(c.Message.Content)), " ")
			counts[key]++
			if _, ok := first[key]; !ok {
				first[key] = c.Message.Content
			}
			if counts[key] > winnerCount {
				winnerCount = counts[key]
				winner = first[key]
			}
		}
		return approach.Result{Content: winner, Tokens: resp.Usage.CompletionTokens}, nil
	}

	return approach.Entry{Kind: approach.CallSyncConfig, Run: run}, nil
}

func intOr(v any, fallback int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return fallback
}
