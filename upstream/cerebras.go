package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// CerebrasClient talks to the Cerebras inference API, which is
// OpenAI-compatible at the wire level.
type CerebrasClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewCerebras creates a Cerebras backend client. baseURL overrides the API
// endpoint (pass "" for the default).
func NewCerebras(apiKey, baseURL string) *CerebrasClient {
	if baseURL == "" {
		baseURL = "https://api.cerebras.ai"
	}
	return &CerebrasClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// Name returns the backend name.
func (c *CerebrasClient) Name() string { return "cerebras" }

// Complete sends a chat completion request. The body is assembled as a map
// so req.Params fields pass through verbatim.
func (c *CerebrasClient) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body := make(map[string]any, len(req.Params)+2)
	for k, v := range req.Params {
		body[k] = v
	}
	body["model"] = req.Model
	body["messages"] = req.Messages

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("cerebras marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("cerebras request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("cerebras read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cerebras API error (%d): %s", httpResp.StatusCode, string(respBody))
	}

	var resp ChatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("cerebras parse response: %w", err)
	}
	return &resp, nil
}

// ListModels enumerates the models the backend offers.
func (c *CerebrasClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/models", nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("cerebras models: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cerebras models API error (%d): %s", httpResp.StatusCode, string(respBody))
	}

	var list struct {
		Data []ModelInfo `json:"data"`
	}
	if err := json.Unmarshal(respBody, &list); err != nil {
		return nil, fmt.Errorf("cerebras parse models: %w", err)
	}
	return list.Data, nil
}
