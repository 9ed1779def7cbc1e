// Package upstream defines the backend client interface and shared wire
// types used to talk to the model backends sitting behind the gateway.
//
// The Client interface must be implemented by any backend; FromEnv selects
// and builds one from ambient credentials. Core types: ChatRequest,
// ChatResponse, Message, ModelInfo.
package upstream

import (
	"encoding/json"
	"errors"
	"strings"
)

// Message role constants used across backends.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"

	// ContentTypeText is the content-part type for plain text in
	// multipart (vision-style) messages.
	ContentTypeText = "text"
)

// ErrNoCredentials is returned by FromEnv when no backend credentials are
// resolvable from the environment.
var ErrNoCredentials = errors.New("no usable backend credentials found")

// ContentPart is a single element of a multipart message content array.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	// Raw keeps non-text parts (image_url etc.) intact for passthrough.
	Raw json.RawMessage `json:"-"`
}

// Message represents a single turn in a conversation.
//
// Content holds plain-text content. ContentParts is populated instead when
// the incoming JSON encodes content as an array of typed parts; use
// FlatContent to obtain a plain string either way.
type Message struct {
	Role         string        `json:"-"`
	Content      string        `json:"-"`
	ContentParts []ContentPart `json:"-"`
	Name         string        `json:"-"`
}

// FlatContent returns the message content as a flat string. Multipart
// content is flattened by joining the text-typed parts with a single
// space; non-text parts are discarded.
func (m Message) FlatContent() string {
	if len(m.ContentParts) == 0 {
		return m.Content
	}
	texts := make([]string, 0, len(m.ContentParts))
	for _, p := range m.ContentParts {
		if p.Type == ContentTypeText {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, " ")
}

// Flattened returns a copy of the message with multipart content collapsed
// into a plain string. Some backends do not handle list-format content.
func (m Message) Flattened() Message {
	if len(m.ContentParts) == 0 {
		return m
	}
	return Message{Role: m.Role, Content: m.FlatContent(), Name: m.Name}
}

// MarshalJSON encodes the content as a string unless ContentParts is set,
// in which case the original array form is preserved.
func (m Message) MarshalJSON() ([]byte, error) {
	type wire struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
		Name    string          `json:"name,omitempty"`
	}
	w := wire{Role: m.Role, Name: m.Name}
	if len(m.ContentParts) > 0 {
		parts := make([]json.RawMessage, len(m.ContentParts))
		for i, p := range m.ContentParts {
			if len(p.Raw) > 0 {
				parts[i] = p.Raw
				continue
			}
			b, err := json.Marshal(struct {
				Type string `json:"type"`
				Text string `json:"text"`
			}{p.Type, p.Text})
			if err != nil {
				return nil, err
			}
			parts[i] = b
		}
		b, err := json.Marshal(parts)
		if err != nil {
			return nil, err
		}
		w.Content = b
	} else {
		b, err := json.Marshal(m.Content)
		if err != nil {
			return nil, err
		}
		w.Content = b
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a message whose content may be a plain string or an
// array of typed parts; both forms are handled.
func (m *Message) UnmarshalJSON(b []byte) error {
	type wire struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
		Name    string          `json:"name"`
	}
	var w wire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	m.Role = w.Role
	m.Name = w.Name

	if len(w.Content) == 0 || string(w.Content) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(w.Content, &s); err == nil {
		m.Content = s
		return nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(w.Content, &raws); err != nil {
		return err
	}
	for _, raw := range raws {
		var p struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		m.ContentParts = append(m.ContentParts, ContentPart{Type: p.Type, Text: p.Text, Raw: raw})
	}
	return nil
}

// ChatRequest is the normalised completion request sent to a backend.
// Params carries the open set of tuning fields (temperature, max_tokens,
// response_format, n, ...) forwarded verbatim alongside the typed fields.
type ChatRequest struct {
	Model    string
	Messages []Message
	Params   map[string]any
}

// ChatResponse is an OpenAI-shaped chat completion envelope.
type ChatResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object,omitempty"`
	Created int64    `json:"created,omitempty"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Choice is a single completion choice.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage carries token consumption statistics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ModelInfo describes a model offered by a backend, matching the OpenAI
// /v1/models response schema.
type ModelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created,omitempty"`
	OwnedBy string `json:"owned_by"`
}

// ModelsFromList builds a ModelInfo slice from a list of model IDs.
func ModelsFromList(owner string, ids []string) []ModelInfo {
	models := make([]ModelInfo, len(ids))
	for i, id := range ids {
		models[i] = ModelInfo{ID: id, Object: "model", OwnedBy: owner}
	}
	return models
}
