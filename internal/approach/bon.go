package approach

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// runBestOfN implements best-of-n sampling: draw n candidates at elevated
// temperature, then ask the model to pick the strongest one.
func runBestOfN(ctx context.Context, call Call) (Result, error) {
	n := call.Defaults.BestOfN
	if n < 1 {
		n = 3
	}

	resp, err := chat(ctx, call, call.Query, map[string]any{"n": n, "temperature": 1.0})
	if err != nil {
		return Result{}, fmt.Errorf("bon: sample: %w", err)
	}
	candidates := contents(resp)
	tokens := resp.Usage.CompletionTokens

	if len(candidates) == 1 {
		return Result{Content: candidates[0], Tokens: tokens}, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Here are %d candidate answers to the query below. Reply with only the number of the best candidate.\n\nQuery: %s\n", len(candidates), call.Query)
	for i, c := range candidates {
		fmt.Fprintf(&sb, "\nCandidate %d:\n%s\n", i+1, c)
	}

	rating, err := chat(ctx, call, sb.String(), map[string]any{"max_tokens": 10, "temperature": 0.0})
	if err != nil {
		return Result{}, fmt.Errorf("bon: rate: %w", err)
	}
	tokens += rating.Usage.CompletionTokens

	best := 0
	if idx, err := strconv.Atoi(firstNumber(rating.Choices[0].Message.Content)); err == nil && idx >= 1 && idx <= len(candidates) {
		best = idx - 1
	}
	return Result{Content: candidates[best], Tokens: tokens}, nil
}

// firstNumber pulls the first run of digits out of s.
func firstNumber(s string) string {
	start := -1
	for i, r := range s {
		if r >= '0' && r <= '9' {
			if start == -1 {
				start = i
			}
			continue
		}
		if start != -1 {
			return s[start:i]
		}
	}
	if start == -1 {
		return ""
	}
	return s[start:]
}
