package approach

import (
	"context"
	"fmt"
	"strings"
)

const moaAgents = 3

// runMixtureOfAgents generates several candidate completions, critiques
// them, and synthesises a final answer from candidates plus critique.
func runMixtureOfAgents(ctx context.Context, call Call) (Result, error) {
	resp, err := chat(ctx, call, call.Query, map[string]any{"n": moaAgents, "temperature": 1.0})
	if err != nil {
		return Result{}, fmt.Errorf("moa: candidates: %w", err)
	}
	candidates := contents(resp)
	tokens := resp.Usage.CompletionTokens

	var critiquePrompt strings.Builder
	fmt.Fprintf(&critiquePrompt, "Original query: %s\n\nI have generated the following responses:\n", call.Query)
	for i, c := range candidates {
		fmt.Fprintf(&critiquePrompt, "\nResponse %d:\n%s\n", i+1, c)
	}
	critiquePrompt.WriteString("\nEvaluate each response: state its strengths and weaknesses in a few sentences.")

	critique, err := chat(ctx, call, critiquePrompt.String(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("moa: critique: %w", err)
	}
	tokens += critique.Usage.CompletionTokens

	var finalPrompt strings.Builder
	fmt.Fprintf(&finalPrompt, "Original query: %s\n\nCandidate responses:\n", call.Query)
	for i, c := range candidates {
		fmt.Fprintf(&finalPrompt, "\nResponse %d:\n%s\n", i+1, c)
	}
	fmt.Fprintf(&finalPrompt, "\nCritique of the responses:\n%s\n", critique.Choices[0].Message.Content)
	finalPrompt.WriteString("\nUsing the candidates and the critique, write the best possible final answer to the original query. Reply with the answer only.")

	final, err := chat(ctx, call, finalPrompt.String(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("moa: synthesis: %w", err)
	}
	tokens += final.Usage.CompletionTokens

	return Result{Content: final.Choices[0].Message.Content, Tokens: tokens}, nil
}
