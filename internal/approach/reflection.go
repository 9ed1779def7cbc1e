package approach

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

const reflectionSystem = `You are an assistant that reasons before answering.
Think through the problem inside <thinking> tags, review your reasoning for
mistakes inside <reflection> tags, then give the final answer inside
<output> tags. Use all three sections exactly once, in that order.`

var outputRe = regexp.MustCompile(`(?s)<output>(.*?)(?:</output>|$)`)

// runCoTReflection implements chain-of-thought with a reflection pass in a
// single completion. By default only the <output> section is returned; the
// full tagged response is kept when return_full_response is set server-wide
// or in the request config.
func runCoTReflection(ctx context.Context, call Call) (Result, error) {
	system := reflectionSystem
	if call.SystemPrompt != "" {
		system = call.SystemPrompt + "\n\n" + reflectionSystem
	}

	sysCall := call
	sysCall.SystemPrompt = system
	resp, err := chat(ctx, sysCall, call.Query, nil)
	if err != nil {
		return Result{}, fmt.Errorf("cot_reflection: %w", err)
	}

	full := resp.Choices[0].Message.Content
	answer := full
	if !returnFull(call) {
		if m := outputRe.FindStringSubmatch(full); m != nil {
			answer = strings.TrimSpace(m[1])
		}
	}
	return Result{Content: answer, Tokens: resp.Usage.CompletionTokens}, nil
}

func returnFull(call Call) bool {
	if v, ok := call.Config["return_full_response"].(bool); ok {
		return v
	}
	return call.Defaults.ReturnFull
}
