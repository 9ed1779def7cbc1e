// Package pipeline composes approach invocations according to the parsed
// combination operator: SINGLE runs one approach, AND pipes approaches
// sequentially, OR fans them out concurrently. The whole unit repeats n
// times and the results aggregate into one value or an ordered list.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/cortexflow-ai/reasongate/internal/approach"
	"github.com/cortexflow-ai/reasongate/internal/modelspec"
)

// ErrInvalidCombination is returned when the passthrough approach appears in
// an AND or OR list; it cannot be combined with other approaches.
var ErrInvalidCombination = errors.New("'none' approach cannot be combined with other approaches")

// Aggregate is the outcome of executing the combinator unit n times.
type Aggregate struct {
	// Contents holds every produced content in order.
	Contents []string
	// Tokens is the summed completion token count.
	Tokens int
	// Single is true when the aggregate collapsed to one value (n == 1 and
	// exactly one result); renderers emit a scalar rather than a list.
	Single bool
}

// Execute runs the unit described by spec exactly n times and aggregates
// the results. Any failure in any branch or repetition aborts the whole
// execution; nothing is retried.
func Execute(ctx context.Context, reg *approach.Registry, spec modelspec.Spec, n int, call approach.Call) (Aggregate, error) {
	if err := validate(spec); err != nil {
		return Aggregate{}, err
	}
	if n < 1 {
		n = 1
	}

	agg := Aggregate{}
	for i := 0; i < n; i++ {
		res, err := runUnit(ctx, reg, spec, call)
		if err != nil {
			return Aggregate{}, err
		}
		// An OR unit (or a multi-sample approach) yields a list; splice it
		// flat into the running results rather than nesting.
		if len(res.Contents) > 0 {
			agg.Contents = append(agg.Contents, res.Contents...)
		} else {
			agg.Contents = append(agg.Contents, res.Content)
		}
		agg.Tokens += res.Tokens
	}

	if n == 1 && len(agg.Contents) == 1 {
		agg.Single = true
	}
	return agg, nil
}

func validate(spec modelspec.Spec) error {
	if spec.Operation == modelspec.OpSingle {
		return nil
	}
	for _, slug := range spec.Approaches {
		if slug == approach.SlugNone {
			return ErrInvalidCombination
		}
	}
	return nil
}

func runUnit(ctx context.Context, reg *approach.Registry, spec modelspec.Spec, call approach.Call) (approach.Result, error) {
	switch spec.Operation {
	case modelspec.OpSingle:
		return approach.Invoke(ctx, reg, spec.Approaches[0], call)
	case modelspec.OpAnd:
		return runSequential(ctx, reg, spec.Approaches, call)
	case modelspec.OpOr:
		return runParallel(ctx, reg, spec.Approaches, call)
	default:
		return approach.Result{}, fmt.Errorf("unknown operation: %s", spec.Operation)
	}
}

// runSequential pipes the approaches: each step's output content becomes
// the next step's query; system prompt and model stay fixed.
func runSequential(ctx context.Context, reg *approach.Registry, slugs []string, call approach.Call) (approach.Result, error) {
	query := call.Query
	tokens := 0
	var last approach.Result
	for _, slug := range slugs {
		step := call
		step.Query = query
		res, err := approach.Invoke(ctx, reg, slug, step)
		if err != nil {
			return approach.Result{}, err
		}
		query = res.Content
		tokens += res.Tokens
		last = res
	}
	last.Tokens = tokens
	last.Contents = nil // a pipeline produces one value
	return last, nil
}

// runParallel fans the approaches out concurrently with the same query and
// joins on all of them. Output order follows input order regardless of
// completion timing; one failed branch fails the unit and discards the
// results of branches that already finished.
func runParallel(ctx context.Context, reg *approach.Registry, slugs []string, call approach.Call) (approach.Result, error) {
	g, gctx := errgroup.WithContext(ctx)
	results := make([]approach.Result, len(slugs))
	for i, slug := range slugs {
		g.Go(func() error {
			res, err := approach.Invoke(gctx, reg, slug, call)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return approach.Result{}, err
	}

	out := approach.Result{}
	for _, res := range results {
		if len(res.Contents) > 0 {
			out.Contents = append(out.Contents, res.Contents...)
		} else {
			out.Contents = append(out.Contents, res.Content)
		}
		out.Tokens += res.Tokens
	}
	if len(out.Contents) > 0 {
		out.Content = out.Contents[0]
	}
	return out, nil
}
