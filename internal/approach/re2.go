package approach

import (
	"context"
	"fmt"
)

// runRe2 implements the re-reading technique: the question is presented
// twice so the model processes it a second time before answering.
func runRe2(ctx context.Context, call Call) (Result, error) {
	prompt := fmt.Sprintf("%s\nRead the question again: %s", call.Query, call.Query)

	var params map[string]any
	if n := call.Defaults.N; n > 1 {
		params = map[string]any{"n": n}
	}

	resp, err := chat(ctx, call, prompt, params)
	if err != nil {
		return Result{}, fmt.Errorf("re2: %w", err)
	}

	all := contents(resp)
	res := Result{Content: all[0], Tokens: resp.Usage.CompletionTokens}
	if len(all) > 1 {
		res.Contents = all
	}
	return res, nil
}
