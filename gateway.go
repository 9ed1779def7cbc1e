// Package reasongate routes chat-completion requests through named inference
// approaches before they reach the backing model provider.
//
// A composite model identifier such as "bon&moa-gpt-4o-mini" selects which
// approaches run and how they combine: '&' pipes them sequentially, '|' fans
// them out concurrently. The Gateway type is the main entry point: create
// one with New, load extension manifests with LoadExtensions, and serve
// requests with Complete.
package reasongate

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/cortexflow-ai/reasongate/internal/approach"
	"github.com/cortexflow-ai/reasongate/internal/cache"
	"github.com/cortexflow-ai/reasongate/internal/extension"
	"github.com/cortexflow-ai/reasongate/internal/logging"
	"github.com/cortexflow-ai/reasongate/internal/metrics"
	"github.com/cortexflow-ai/reasongate/internal/modelspec"
	"github.com/cortexflow-ai/reasongate/internal/pipeline"
	"github.com/cortexflow-ai/reasongate/internal/requestlog"
	"github.com/cortexflow-ai/reasongate/internal/transcript"
	"github.com/cortexflow-ai/reasongate/upstream"
)

// Event subject constants used when invoking gateway hooks.
const (
	SubjectRequestCompleted = "gateway.request.completed"
	SubjectRequestFailed    = "gateway.request.failed"
)

// EventHookFunc is called asynchronously after each completed or failed
// request.
type EventHookFunc func(ctx context.Context, subject string, data map[string]interface{})

// Request is one decoded chat-completion request.
type Request struct {
	// Model is the composite model identifier.
	Model string
	// Messages is the conversation.
	Messages []upstream.Message
	// Stream requests server-sent event framing.
	Stream bool
	// Repeat asks for the whole combination to run this many times
	// (the request body's "n"). Zero means the configured default.
	Repeat int
	// Approach is the explicit per-request directive from the body. An
	// inline message tag overrides it; it overrides the server default.
	Approach string
	// Bearer is the client's bearer token. Tokens with the provider key
	// prefix are forwarded to the backend in place of the server's own
	// credentials.
	Bearer string
	// Config is the per-request approach override map from the body.
	Config map[string]any
	// Params holds every other body field, forwarded verbatim to the
	// backend on passthrough requests.
	Params map[string]any
}

// Aggregate is the combinator result shape: every produced content in
// order, the summed completion token count, and whether the whole run
// collapsed to a single value.
type Aggregate = pipeline.Aggregate

// Outcome is the result of routing one request.
type Outcome struct {
	// Spec is the parsed combination that ran.
	Spec modelspec.Spec
	// Raw is set on the passthrough fast path: the backend's envelope,
	// forwarded unchanged.
	Raw *upstream.ChatResponse
	// Aggregate holds the combinator results otherwise.
	Aggregate Aggregate
}

// approachTag lets a message embed the approach directive inline, e.g.
// "<reason_approach>moa</reason_approach> solve this". The tag is removed
// from the message before it reaches the model.
var approachTag = regexp.MustCompile(`<reason_approach>(.*?)</reason_approach>`)

// Gateway is the main entry point for routing reasoning requests.
type Gateway struct {
	mu       sync.RWMutex
	config   Config
	registry *approach.Registry
	client   upstream.Client
	writer   requestlog.Writer
	models   *cache.LRU[[]upstream.ModelInfo]
	hooks    []EventHookFunc
}

// modelListTTL bounds how stale the cached backend model listing may get.
const modelListTTL = 5 * time.Minute

// New creates a Gateway from the given configuration. The upstream client
// is resolved from the environment; the request log writer is opened when
// configured.
func New(cfg Config) (*Gateway, error) {
	client, err := upstream.FromEnv(cfg.Upstream.BaseURL)
	if err != nil {
		return nil, err
	}
	return NewWithClient(cfg, client)
}

// NewWithClient creates a Gateway with an explicit upstream client.
func NewWithClient(cfg Config, client upstream.Client) (*Gateway, error) {
	if cfg.Repeat < 1 {
		cfg.Repeat = 1
	}
	if cfg.Approach == "" {
		cfg.Approach = "auto"
	}

	var writer requestlog.Writer = requestlog.NoopWriter{}
	switch cfg.RequestLog.Driver {
	case "":
	case "sqlite":
		w, err := requestlog.NewSQLiteWriter(cfg.RequestLog.DSN)
		if err != nil {
			return nil, err
		}
		writer = w
	case "postgres":
		w, err := requestlog.NewPostgresWriter(cfg.RequestLog.DSN)
		if err != nil {
			return nil, err
		}
		writer = w
	default:
		return nil, fmt.Errorf("unknown request log driver: %q", cfg.RequestLog.Driver)
	}

	return &Gateway{
		config:   cfg,
		registry: approach.NewRegistry(),
		client:   client,
		writer:   writer,
		models:   cache.NewLRU[[]upstream.ModelInfo](8, modelListTTL),
	}, nil
}

// Registry exposes the approach registry, mainly for listing known slugs.
func (g *Gateway) Registry() *approach.Registry {
	return g.registry
}

// LoadExtensions discovers manifests in the configured directories and
// installs the declared approaches. Safe to call again to pick up changes.
func (g *Gateway) LoadExtensions() {
	extension.Reload(g.registry, g.config.Extensions.BundledDir, g.config.Extensions.LocalDir)
}

// AddHook registers an EventHookFunc invoked asynchronously on each
// completed or failed request.
func (g *Gateway) AddHook(fn EventHookFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hooks = append(g.hooks, fn)
}

// GetConfig returns a copy of the current configuration.
func (g *Gateway) GetConfig() Config {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.config
}

// ListModels proxies the backend's model listing. Listings are cached per
// backend for a few minutes; clients poll this far more often than the
// backend catalogue changes.
func (g *Gateway) ListModels(ctx context.Context) ([]upstream.ModelInfo, error) {
	key := g.client.Name()
	if models, ok := g.models.Get(key); ok {
		return models, nil
	}
	models, err := g.client.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	g.models.Set(key, models)
	return models, nil
}

// Complete routes one chat-completion request through its approach
// combination and aggregates the results.
func (g *Gateway) Complete(ctx context.Context, req Request) (*Outcome, error) {
	start := time.Now()
	log := logging.FromContext(ctx)

	spec, messages := g.resolveSpec(req)
	client := g.resolveClient(req.Bearer)

	repeat := req.Repeat
	if repeat < 1 {
		repeat = g.config.Repeat
	}

	systemPrompt, query := transcript.FlattenConversation(messages)

	call := approach.Call{
		SystemPrompt: systemPrompt,
		Query:        query,
		Client:       client,
		Model:        spec.Model,
		Defaults:     g.config.Defaults,
		Config:       req.Config,
		Messages:     messages,
		Params:       req.Params,
	}

	// Passthrough requests skip the combinator entirely and return the
	// backend envelope untouched.
	if spec.Operation == modelspec.OpSingle && spec.Approaches[0] == approach.SlugNone {
		res, err := approach.Invoke(ctx, g.registry, approach.SlugNone, call)
		latency := time.Since(start)
		if err != nil {
			g.finish(ctx, req, spec, 0, latency, err)
			return nil, err
		}
		g.finish(ctx, req, spec, 0, latency, nil)
		log.Info("request completed",
			"model", req.Model,
			"operation", string(spec.Operation),
			"approaches", strings.Join(spec.Approaches, ","),
			"latency_ms", latency.Milliseconds(),
		)
		return &Outcome{Spec: spec, Raw: res.Response}, nil
	}

	agg, err := pipeline.Execute(ctx, g.registry, spec, repeat, call)
	latency := time.Since(start)
	if err != nil {
		g.finish(ctx, req, spec, 0, latency, err)
		log.Error("request failed",
			"model", req.Model,
			"operation", string(spec.Operation),
			"latency_ms", latency.Milliseconds(),
			"error", err.Error(),
		)
		return nil, err
	}

	g.finish(ctx, req, spec, agg.Tokens, latency, nil)
	log.Info("request completed",
		"model", req.Model,
		"operation", string(spec.Operation),
		"approaches", strings.Join(spec.Approaches, ","),
		"results", len(agg.Contents),
		"tokens_out", agg.Tokens,
		"latency_ms", latency.Milliseconds(),
	)
	return &Outcome{Spec: spec, Aggregate: agg}, nil
}

// resolveSpec applies the directive precedence (inline message tag, body
// field, server default), composes the effective model identifier, and
// parses it. The tag is always stripped from the returned messages, even
// when a body directive shadows nothing.
func (g *Gateway) resolveSpec(req Request) (modelspec.Spec, []upstream.Message) {
	directive, messages := extractDirective(req.Messages)
	if directive == "" {
		directive = req.Approach
	}
	if directive == "" {
		directive = g.config.Approach
	}

	model := req.Model
	if directive != "" && directive != "auto" {
		model = directive + "-" + model
	}
	return modelspec.Parse(model, g.registry.Known), messages
}

// extractDirective scans the messages for an inline approach tag. The first
// tagged message wins; the tag is removed from its content.
func extractDirective(messages []upstream.Message) (string, []upstream.Message) {
	for i, msg := range messages {
		text := msg.FlatContent()
		m := approachTag.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		cleaned := make([]upstream.Message, len(messages))
		copy(cleaned, messages)
		cleaned[i] = upstream.Message{
			Role:    msg.Role,
			Name:    msg.Name,
			Content: strings.TrimSpace(approachTag.ReplaceAllString(text, "")),
		}
		return strings.TrimSpace(m[1]), cleaned
	}
	return "", messages
}

// resolveClient swaps in a per-request backend client when the caller's
// bearer token looks like a provider API key.
func (g *Gateway) resolveClient(bearer string) upstream.Client {
	if strings.HasPrefix(bearer, "sk-") {
		return upstream.WithBearer(bearer, g.config.Upstream.BaseURL)
	}
	return g.client
}

// finish emits metrics, the request log entry, and hooks for one request.
func (g *Gateway) finish(ctx context.Context, req Request, spec modelspec.Spec, tokens int, latency time.Duration, reqErr error) {
	status := "success"
	errMsg := ""
	if reqErr != nil {
		status = "error"
		errMsg = reqErr.Error()
	}

	op := string(spec.Operation)
	metrics.RequestsTotal.WithLabelValues(op, spec.Model, status).Inc()
	metrics.RequestDuration.WithLabelValues(op, spec.Model).Observe(latency.Seconds())

	entry := requestlog.Entry{
		TraceID:          logging.TraceIDFromContext(ctx),
		Model:            req.Model,
		BaseModel:        spec.Model,
		Operation:        op,
		Approaches:       strings.Join(spec.Approaches, ","),
		Repeat:           req.Repeat,
		CompletionTokens: tokens,
		Streamed:         req.Stream,
		ErrorMessage:     errMsg,
	}
	if err := g.writer.Write(ctx, entry); err != nil {
		logging.FromContext(ctx).Warn("request log write failed", "error", err.Error())
	}

	subject := SubjectRequestCompleted
	if reqErr != nil {
		subject = SubjectRequestFailed
	}
	g.publishEvent(ctx, subject, map[string]interface{}{
		"trace_id":   entry.TraceID,
		"model":      req.Model,
		"operation":  op,
		"approaches": spec.Approaches,
		"tokens_out": tokens,
		"latency_ms": latency.Milliseconds(),
		"error":      errMsg,
		"timestamp":  time.Now(),
	})
}

// publishEvent calls all registered hooks asynchronously.
func (g *Gateway) publishEvent(ctx context.Context, subject string, data map[string]interface{}) {
	g.mu.RLock()
	hooks := make([]EventHookFunc, len(g.hooks))
	copy(hooks, g.hooks)
	g.mu.RUnlock()

	for _, h := range hooks {
		fn := h
		go fn(ctx, subject, data)
	}
}

// Close releases the request log writer.
func (g *Gateway) Close() error {
	if c, ok := g.writer.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
