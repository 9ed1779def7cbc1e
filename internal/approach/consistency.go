package approach

import (
	"context"
	"fmt"
	"strings"
)

const consistencySamples = 5

// runSelfConsistency samples several completions and returns the most
// frequent answer under whitespace/case-insensitive comparison. Ties keep
// the earliest sampled answer.
func runSelfConsistency(ctx context.Context, call Call) (Result, error) {
	resp, err := chat(ctx, call, call.Query, map[string]any{"n": consistencySamples, "temperature": 1.0})
	if err != nil {
		return Result{}, fmt.Errorf("self_consistency: %w", err)
	}
	samples := contents(resp)

	counts := make(map[string]int, len(samples))
	first := make(map[string]string, len(samples))
	for _, s := range samples {
		key := normalizeAnswer(s)
		counts[key]++
		if _, ok := first[key]; !ok {
			first[key] = s
		}
	}

	best := samples[0]
	bestCount := 0
	for _, s := range samples {
		key := normalizeAnswer(s)
		if counts[key] > bestCount {
			bestCount = counts[key]
			best = first[key]
		}
	}
	return Result{Content: best, Tokens: resp.Usage.CompletionTokens}, nil
}

func normalizeAnswer(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
