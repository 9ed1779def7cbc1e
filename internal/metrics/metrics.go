// Package metrics registers the Prometheus metrics used by the gateway.
// Import this package (via blank import) from the server entry point to
// register all metrics before the /metrics handler is mounted.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request-level counters and histograms.
var (
	// RequestsTotal counts completed requests labelled by operation
	// ("SINGLE", "AND", "OR"), model, and outcome ("success", "error",
	// "unauthorized").
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reasongate_requests_total",
			Help: "Total number of requests processed by the gateway.",
		},
		[]string{"operation", "model", "status"},
	)

	// RequestDuration observes end-to-end request latency in seconds.
	// Buckets skew long: reasoning approaches make many upstream calls.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reasongate_request_duration_seconds",
			Help:    "End-to-end request duration in seconds.",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"operation", "model"},
	)

	// ApproachCalls counts individual approach invocations by slug and
	// outcome ("success", "error").
	ApproachCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reasongate_approach_calls_total",
			Help: "Total approach invocations by slug.",
		},
		[]string{"approach", "status"},
	)

	// CompletionTokens counts completion tokens accounted by approaches.
	CompletionTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reasongate_completion_tokens_total",
			Help: "Total completion tokens reported by approaches.",
		},
		[]string{"approach"},
	)

	// ExtensionLoadErrors counts manifest or factory failures during a
	// registry reload, labelled by source ("bundled", "local").
	ExtensionLoadErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reasongate_extension_load_errors_total",
			Help: "Total extension load failures by source directory.",
		},
		[]string{"source"},
	)
)
