package approach

import (
	"context"
	"fmt"

	"github.com/cortexflow-ai/reasongate/internal/metrics"
)

// Invoke runs one approach by slug with the declared calling convention.
//
// Entries that do not accept the request-scoped config are called with it
// cleared. Async entries run on their own goroutine and are awaited here;
// the goroutine is never reused across calls.
func Invoke(ctx context.Context, reg *Registry, slug string, call Call) (Result, error) {
	entry, src := reg.Resolve(slug)
	if src == SourceUnknown {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknown, slug)
	}

	if entry.Kind != CallSyncConfig {
		call.Config = nil
	}

	var res Result
	var err error
	switch entry.Kind {
	case CallAsync:
		res, err = runAsync(ctx, entry, call)
	default:
		res, err = entry.Run(ctx, call)
	}

	if err != nil {
		metrics.ApproachCalls.WithLabelValues(slug, "error").Inc()
		return Result{}, err
	}
	metrics.ApproachCalls.WithLabelValues(slug, "success").Inc()
	metrics.CompletionTokens.WithLabelValues(slug).Add(float64(res.Tokens))
	return res, nil
}

type outcome struct {
	res Result
	err error
}

// runAsync submits the entry to its own single-use goroutine and waits for
// completion or context cancellation. An abandoned call finishes in the
// background; its result is discarded.
func runAsync(ctx context.Context, entry Entry, call Call) (Result, error) {
	done := make(chan outcome, 1)
	go func() {
		res, err := entry.Run(ctx, call)
		done <- outcome{res, err}
	}()
	select {
	case out := <-done:
		return out.res, out.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
