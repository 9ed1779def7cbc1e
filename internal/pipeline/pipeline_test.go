package pipeline

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/cortexflow-ai/reasongate/internal/approach"
	"github.com/cortexflow-ai/reasongate/internal/modelspec"
)

// tagEntry returns an approach that appends its own marker to the incoming
// query, so pipelines leave a visible trail.
func tagEntry(slug, marker string) approach.Entry {
	return approach.Entry{
		Slug: slug,
		Kind: approach.CallSync,
		Run: func(_ context.Context, call approach.Call) (approach.Result, error) {
			return approach.Result{Content: call.Query + marker, Tokens: 1}, nil
		},
	}
}

func newTestRegistry(entries ...approach.Entry) *approach.Registry {
	reg := approach.NewRegistry()
	for _, e := range entries {
		reg.Register(e)
	}
	return reg
}

func TestExecute_SequentialPipesOutputs(t *testing.T) {
	reg := newTestRegistry(tagEntry("tag_a", "[a]"), tagEntry("tag_b", "[b]"))
	spec := modelspec.Spec{Operation: modelspec.OpAnd, Approaches: []string{"tag_a", "tag_b"}, Model: "m"}

	agg, err := Execute(context.Background(), reg, spec, 1, approach.Call{Query: "q"})
	if err != nil {
		t.Fatal(err)
	}
	if !agg.Single {
		t.Error("expected a single result")
	}
	if want := []string{"q[a][b]"}; !reflect.DeepEqual(agg.Contents, want) {
		t.Errorf("got %v, want %v", agg.Contents, want)
	}
	if agg.Tokens != 2 {
		t.Errorf("tokens = %d, want 2", agg.Tokens)
	}
}

func TestExecute_ParallelPreservesInputOrder(t *testing.T) {
	slow := approach.Entry{
		Slug: "slow",
		Kind: approach.CallSync,
		Run: func(_ context.Context, _ approach.Call) (approach.Result, error) {
			time.Sleep(30 * time.Millisecond)
			return approach.Result{Content: "slow"}, nil
		},
	}
	fast := approach.Entry{
		Slug: "fast",
		Kind: approach.CallSync,
		Run: func(_ context.Context, _ approach.Call) (approach.Result, error) {
			return approach.Result{Content: "fast"}, nil
		},
	}
	reg := newTestRegistry(slow, fast)
	spec := modelspec.Spec{Operation: modelspec.OpOr, Approaches: []string{"slow", "fast"}, Model: "m"}

	agg, err := Execute(context.Background(), reg, spec, 1, approach.Call{Query: "q"})
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"slow", "fast"}; !reflect.DeepEqual(agg.Contents, want) {
		t.Errorf("got %v, want %v", agg.Contents, want)
	}
	if agg.Single {
		t.Error("a fan-out never collapses to a single result")
	}
}

func TestExecute_ParallelFailureDiscardsEverything(t *testing.T) {
	boom := errors.New("boom")
	failing := approach.Entry{
		Slug: "failing",
		Kind: approach.CallSync,
		Run: func(_ context.Context, _ approach.Call) (approach.Result, error) {
			return approach.Result{}, boom
		},
	}
	reg := newTestRegistry(tagEntry("ok", "[ok]"), failing)
	spec := modelspec.Spec{Operation: modelspec.OpOr, Approaches: []string{"ok", "failing"}, Model: "m"}

	_, err := Execute(context.Background(), reg, spec, 1, approach.Call{Query: "q"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestExecute_RepeatsAndSplicesFlat(t *testing.T) {
	calls := 0
	counting := approach.Entry{
		Slug: "counting",
		Kind: approach.CallSync,
		Run: func(_ context.Context, _ approach.Call) (approach.Result, error) {
			calls++
			return approach.Result{Content: fmt.Sprintf("r%d", calls), Tokens: 2}, nil
		},
	}
	reg := newTestRegistry(counting)
	spec := modelspec.Spec{Operation: modelspec.OpSingle, Approaches: []string{"counting"}, Model: "m"}

	agg, err := Execute(context.Background(), reg, spec, 3, approach.Call{Query: "q"})
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"r1", "r2", "r3"}; !reflect.DeepEqual(agg.Contents, want) {
		t.Errorf("got %v, want %v", agg.Contents, want)
	}
	if agg.Single {
		t.Error("n > 1 must not collapse")
	}
	if agg.Tokens != 6 {
		t.Errorf("tokens = %d, want 6", agg.Tokens)
	}
}

func TestExecute_MultiSampleResultsSpliceFlat(t *testing.T) {
	sampler := approach.Entry{
		Slug: "sampler",
		Kind: approach.CallSync,
		Run: func(_ context.Context, _ approach.Call) (approach.Result, error) {
			return approach.Result{Content: "x", Contents: []string{"x", "y"}}, nil
		},
	}
	reg := newTestRegistry(sampler)
	spec := modelspec.Spec{Operation: modelspec.OpSingle, Approaches: []string{"sampler"}, Model: "m"}

	agg, err := Execute(context.Background(), reg, spec, 2, approach.Call{Query: "q"})
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"x", "y", "x", "y"}; !reflect.DeepEqual(agg.Contents, want) {
		t.Errorf("got %v, want %v", agg.Contents, want)
	}
}

func TestExecute_SingleCollapse(t *testing.T) {
	reg := newTestRegistry(tagEntry("tag", "[t]"))
	spec := modelspec.Spec{Operation: modelspec.OpSingle, Approaches: []string{"tag"}, Model: "m"}

	agg, err := Execute(context.Background(), reg, spec, 1, approach.Call{Query: "q"})
	if err != nil {
		t.Fatal(err)
	}
	if !agg.Single || len(agg.Contents) != 1 {
		t.Fatalf("expected single collapse, got %+v", agg)
	}
}

func TestExecute_NoneCannotCombine(t *testing.T) {
	reg := newTestRegistry(tagEntry("tag", "[t]"))
	for _, op := range []modelspec.Operation{modelspec.OpAnd, modelspec.OpOr} {
		spec := modelspec.Spec{Operation: op, Approaches: []string{"none", "tag"}, Model: "m"}
		_, err := Execute(context.Background(), reg, spec, 1, approach.Call{Query: "q"})
		if !errors.Is(err, ErrInvalidCombination) {
			t.Errorf("%s: expected ErrInvalidCombination, got %v", op, err)
		}
	}
}

func TestExecute_SequentialStopsOnFirstFailure(t *testing.T) {
	boom := errors.New("boom")
	called := false
	failing := approach.Entry{
		Slug: "failing",
		Kind: approach.CallSync,
		Run: func(_ context.Context, _ approach.Call) (approach.Result, error) {
			return approach.Result{}, boom
		},
	}
	after := approach.Entry{
		Slug: "after",
		Kind: approach.CallSync,
		Run: func(_ context.Context, _ approach.Call) (approach.Result, error) {
			called = true
			return approach.Result{Content: "after"}, nil
		},
	}
	reg := newTestRegistry(failing, after)
	spec := modelspec.Spec{Operation: modelspec.OpAnd, Approaches: []string{"failing", "after"}, Model: "m"}

	_, err := Execute(context.Background(), reg, spec, 1, approach.Call{Query: "q"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if called {
		t.Error("later pipeline steps must not run after a failure")
	}
}
