// Package logging configures the process-wide slog logger and threads a
// per-request trace ID through context. Handlers annotate log lines by
// asking FromContext for a logger instead of touching slog directly.
package logging

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/google/uuid"
)

// requestIDHeader is echoed back to clients and accepted on the way in, so
// callers can correlate gateway logs with their own.
const requestIDHeader = "X-Request-ID"

type traceKey struct{}

// Logger is the process-wide structured logger. Prefer FromContext inside
// request handling.
var Logger *slog.Logger

func init() {
	Setup(os.Getenv("REASONGATE_LOG"), os.Getenv("REASONGATE_LOG_FORMAT"))
}

// Setup rebuilds the process logger. Unrecognised values fall back to info
// level and JSON output.
func Setup(level, format string) {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var h slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if format == "text" {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	Logger = slog.New(h)
	slog.SetDefault(Logger)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// NewTraceID mints a fresh request trace ID.
func NewTraceID() string {
	return uuid.NewString()
}

// WithTraceID stores a trace ID in the context.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

// TraceIDFromContext returns the trace ID stored in ctx, or "".
func TraceIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}

// FromContext returns the process logger annotated with the trace ID from
// ctx when one is present.
func FromContext(ctx context.Context) *slog.Logger {
	if id := TraceIDFromContext(ctx); id != "" {
		return Logger.With("trace_id", id)
	}
	return Logger
}

// Middleware assigns every request a trace ID, reusing the caller's
// X-Request-ID when supplied, and echoes it in the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = NewTraceID()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(WithTraceID(r.Context(), id)))
	})
}
