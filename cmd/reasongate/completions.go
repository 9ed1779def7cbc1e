package main

import (
	"encoding/json"
	"io"
	"net/http"

	reasongate "github.com/cortexflow-ai/reasongate"
	"github.com/cortexflow-ai/reasongate/internal/render"
	"github.com/cortexflow-ai/reasongate/upstream"
)

// Body fields the gateway consumes itself. Everything else is forwarded to
// the backend verbatim on passthrough requests. "n" is deliberately not
// reserved: it doubles as the repetition count and a backend sampling
// parameter, so the passthrough must still carry it.
var reservedFields = map[string]bool{
	"model":           true,
	"messages":        true,
	"stream":          true,
	"reason_approach": true,
}

// decodeCompletionRequest splits the body into the fields the gateway acts
// on and the passthrough extras.
func decodeCompletionRequest(r *http.Request) (reasongate.Request, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return reasongate.Request{}, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return reasongate.Request{}, err
	}

	req := reasongate.Request{Bearer: bearerToken(r)}
	if v, ok := raw["model"]; ok {
		if err := json.Unmarshal(v, &req.Model); err != nil {
			return reasongate.Request{}, err
		}
	}
	if v, ok := raw["messages"]; ok {
		var messages []upstream.Message
		if err := json.Unmarshal(v, &messages); err != nil {
			return reasongate.Request{}, err
		}
		req.Messages = messages
	}
	if v, ok := raw["stream"]; ok {
		if err := json.Unmarshal(v, &req.Stream); err != nil {
			return reasongate.Request{}, err
		}
	}
	if v, ok := raw["n"]; ok {
		if err := json.Unmarshal(v, &req.Repeat); err != nil {
			return reasongate.Request{}, err
		}
	}
	if v, ok := raw["reason_approach"]; ok {
		if err := json.Unmarshal(v, &req.Approach); err != nil {
			return reasongate.Request{}, err
		}
	}

	req.Params = make(map[string]any)
	for k, v := range raw {
		if reservedFields[k] {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return reasongate.Request{}, err
		}
		req.Params[k] = val
	}
	// Approaches read their per-request overrides from the same extras.
	req.Config = req.Params
	return req, nil
}

func completionsHandler(gw *reasongate.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeCompletionRequest(r)
		if err != nil {
			writeOpenAIError(w, http.StatusBadRequest, err.Error(), "invalid_request_error")
			return
		}
		if req.Model == "" {
			writeOpenAIError(w, http.StatusBadRequest, "model is required", "invalid_request_error")
			return
		}
		if len(req.Messages) == 0 {
			writeOpenAIError(w, http.StatusBadRequest, "messages are required", "invalid_request_error")
			return
		}

		// Every routing failure, including invalid combinations and
		// unknown approach slugs, surfaces as a server error.
		outcome, err := gw.Complete(r.Context(), req)
		if err != nil {
			writeOpenAIError(w, http.StatusInternalServerError, err.Error(), "server_error")
			return
		}

		// Passthrough requests forward the backend envelope unchanged; a
		// streamed passthrough is re-framed from its choice contents.
		if outcome.Raw != nil {
			if req.Stream {
				agg := reasongate.Aggregate{Contents: render.ExtractContents(outcome.Raw)}
				render.WriteSSE(w, render.Frames(req.Model, agg))
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(outcome.Raw)
			return
		}

		agg := render.Normalize(outcome.Aggregate)
		if req.Stream {
			render.WriteSSE(w, render.Frames(req.Model, agg))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(render.NewCompletion(req.Model, agg))
	}
}
