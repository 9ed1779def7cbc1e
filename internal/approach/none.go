package approach

import (
	"context"
	"strings"

	"github.com/cortexflow-ai/reasongate/upstream"
)

// runNone is the direct passthrough: the caller's original messages and
// every non-reserved request field go to the backend untouched.
//
// Token accounting is zero at this layer: the backend's own usage figures
// travel inside the forwarded response. Backend errors propagate unchanged.
func runNone(ctx context.Context, call Call) (Result, error) {
	model := strings.TrimPrefix(call.Model, SlugNone+"-")

	// Some backends reject list-format content; flatten every message.
	messages := make([]upstream.Message, len(call.Messages))
	for i, msg := range call.Messages {
		messages[i] = msg.Flattened()
	}

	resp, err := call.Client.Complete(ctx, upstream.ChatRequest{
		Model:    model,
		Messages: messages,
		Params:   call.Params,
	})
	if err != nil {
		return Result{}, err
	}

	res := Result{Response: resp, Tokens: 0}
	if len(resp.Choices) > 0 {
		res.Content = resp.Choices[0].Message.Content
	}
	return res, nil
}
