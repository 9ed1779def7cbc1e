// Package approach defines the inference approaches the gateway can apply
// to a request: the registry of known slugs, the uniform calling convention,
// and the single-approach dispatcher.
//
// An approach is a named technique (best-of-n sampling, re-reading,
// reflection, ...) that turns a prompt into a completion using the backend
// client. Built-ins are registered at construction; extensions are loaded
// from manifests by the extension package and swapped in wholesale.
package approach

import (
	"context"
	"errors"

	"github.com/cortexflow-ai/reasongate/upstream"
)

// SlugNone is the passthrough approach: the request goes to the backend
// unmodified (aside from message-content normalisation).
const SlugNone = "none"

// ErrUnknown is returned when a slug is neither a built-in nor a registered
// extension.
var ErrUnknown = errors.New("unknown approach")

// CallKind declares an entry's calling convention at registration time.
// The dispatcher consults it instead of inspecting the callable per call.
type CallKind int

// Calling conventions.
const (
	// CallSync entries run inline and do not receive the request-scoped
	// config (the legacy four-argument form).
	CallSync CallKind = iota
	// CallSyncConfig entries run inline and receive the request-scoped
	// config map.
	CallSyncConfig
	// CallAsync entries are submitted to the executor and awaited; each
	// call gets its own goroutine, never shared between calls.
	CallAsync
)

// Defaults carries the server-wide tuning knobs approaches draw from.
// Values are forwarded verbatim; the engine attaches no meaning to them.
type Defaults struct {
	MCTSSimulations  int     `json:"mcts_simulations" yaml:"mcts_simulations"`
	MCTSExploration  float64 `json:"mcts_exploration" yaml:"mcts_exploration"`
	MCTSDepth        int     `json:"mcts_depth" yaml:"mcts_depth"`
	BestOfN          int     `json:"best_of_n" yaml:"best_of_n"`
	RStarMaxDepth    int     `json:"rstar_max_depth" yaml:"rstar_max_depth"`
	RStarNumRollouts int     `json:"rstar_num_rollouts" yaml:"rstar_num_rollouts"`
	RStarC           float64 `json:"rstar_c" yaml:"rstar_c"`
	N                int     `json:"n" yaml:"n"`
	ReturnFull       bool    `json:"return_full_response" yaml:"return_full_response"`
}

// StandardDefaults returns the server-wide knob values used when the
// operator overrides nothing.
func StandardDefaults() Defaults {
	return Defaults{
		MCTSSimulations:  2,
		MCTSExploration:  0.2,
		MCTSDepth:        1,
		BestOfN:          3,
		RStarMaxDepth:    3,
		RStarNumRollouts: 5,
		RStarC:           1.4,
		N:                1,
	}
}

// Call is the immutable per-invocation context passed to every approach.
type Call struct {
	SystemPrompt string
	Query        string
	Client       upstream.Client
	Model        string
	Defaults     Defaults

	// Config is the request-scoped override map. The dispatcher clears it
	// for entries whose kind is not CallSyncConfig.
	Config map[string]any

	// Messages and Params are consumed by the passthrough approach only:
	// the caller's original message list and every request field outside
	// the reserved set.
	Messages []upstream.Message
	Params   map[string]any
}

// Result is what one approach invocation produces.
type Result struct {
	// Content is the textual result. May carry legacy transcript markers;
	// the renderer normalises those at the boundary.
	Content string
	// Contents is set instead when the approach yields an ordered list of
	// candidates (multi-sample approaches with n > 1). Content then holds
	// the first element.
	Contents []string
	// Tokens is the completion token count accounted to this call.
	Tokens int
	// Response is set by the passthrough approach only: the backend's
	// envelope forwarded unchanged, its own usage figures intact.
	Response *upstream.ChatResponse
}

// RunFunc is the uniform entry point every approach implements.
type RunFunc func(ctx context.Context, call Call) (Result, error)

// Entry binds a slug to its implementation and calling convention.
type Entry struct {
	Slug string
	Kind CallKind
	Run  RunFunc
}
