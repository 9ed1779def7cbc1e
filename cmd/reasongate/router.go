package main

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	reasongate "github.com/cortexflow-ai/reasongate"
	"github.com/cortexflow-ai/reasongate/internal/logging"
	"github.com/cortexflow-ai/reasongate/internal/ratelimit"
)

// newRouter builds the HTTP router.
func newRouter(gw *reasongate.Gateway, cfg reasongate.Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware)

	var limiter *ratelimit.Store
	if cfg.Server.RateLimit > 0 {
		limiter = ratelimit.NewStore(cfg.Server.RateLimit, 2*cfg.Server.RateLimit)
	}

	// Health stays open even when client auth is configured.
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(cfg.Server.APIKey))
		r.Use(ratelimit.Middleware(limiter, limiterKey))

		r.Get("/v1/models", func(w http.ResponseWriter, req *http.Request) {
			models, err := gw.ListModels(req.Context())
			if err != nil {
				writeOpenAIError(w, http.StatusInternalServerError, err.Error(), "server_error")
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"object": "list",
				"data":   models,
			})
		})

		r.Post("/v1/chat/completions", completionsHandler(gw))
	})

	return r
}

// authMiddleware enforces bearer-token auth when a key is configured. The
// comparison is constant time.
func authMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			token := bearerToken(r)
			if subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
				writeOpenAIError(w, http.StatusUnauthorized, "invalid api key", "invalid_request_error")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// limiterKey identifies a caller for rate limiting: the bearer token when
// present, the remote address otherwise.
func limiterKey(r *http.Request) string {
	if token := bearerToken(r); token != "" {
		return token
	}
	return r.RemoteAddr
}

// bearerToken extracts the bearer token from the Authorization header.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return auth[len(prefix):]
	}
	return ""
}

// writeOpenAIError writes an OpenAI-compatible JSON error response.
func writeOpenAIError(w http.ResponseWriter, status int, message, errType string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"message": message,
			"type":    errType,
		},
	})
}
