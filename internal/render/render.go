// Package render converts an aggregate execution result into the
// client-facing chat-completion shapes: a single JSON completion object, or
// a server-sent event stream of one whole-content frame per choice followed
// by the [DONE] sentinel.
package render

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/cortexflow-ai/reasongate/internal/pipeline"
	"github.com/cortexflow-ai/reasongate/internal/transcript"
	"github.com/cortexflow-ai/reasongate/upstream"
)

// SSEDone is the sentinel value that marks the end of an event stream.
const SSEDone = "[DONE]"

// Completion is the non-streaming response envelope.
type Completion struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
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

// Message is the choice payload.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage reports the tokens this gateway accounted for the request.
type Usage struct {
	CompletionTokens int `json:"completion_tokens"`
}

// Frame is one streamed chunk. Content arrives whole, not token by token:
// the framing mimics the incremental protocol without true incrementality.
type Frame struct {
	ID      string        `json:"id,omitempty"`
	Object  string        `json:"object,omitempty"`
	Created int64         `json:"created,omitempty"`
	Model   string        `json:"model"`
	Choices []FrameChoice `json:"choices"`
}

// FrameChoice is a single choice inside a streamed frame.
type FrameChoice struct {
	Delta        Delta  `json:"delta"`
	Index        int    `json:"index"`
	FinishReason string `json:"finish_reason"`
}

// Delta carries the (whole) content of one choice.
type Delta struct {
	Content string `json:"content"`
}

// Normalize reduces each aggregate element through the legacy transcript
// codec: tagged conversations collapse to their final assistant turn,
// untagged content passes through unchanged.
func Normalize(agg pipeline.Aggregate) pipeline.Aggregate {
	out := agg
	out.Contents = make([]string, len(agg.Contents))
	for i, c := range agg.Contents {
		out.Contents[i] = transcript.FinalAssistant(c)
	}
	return out
}

// NewCompletion wraps the aggregate into a completion object, one choice
// per content element, index equal to position.
func NewCompletion(model string, agg pipeline.Aggregate) Completion {
	resp := Completion{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Usage:   Usage{CompletionTokens: agg.Tokens},
	}
	for i, content := range agg.Contents {
		resp.Choices = append(resp.Choices, Choice{
			Index:        i,
			Message:      Message{Role: upstream.RoleAssistant, Content: content},
			FinishReason: "stop",
		})
	}
	return resp
}

// Frames builds one frame per content element, index equal to position,
// each carrying its entire content as a single delta with finish reason
// "stop". The [DONE] sentinel is appended by WriteSSE.
func Frames(model string, agg pipeline.Aggregate) []Frame {
	id := "chatcmpl-" + uuid.NewString()
	created := time.Now().Unix()
	frames := make([]Frame, 0, len(agg.Contents))
	for i, content := range agg.Contents {
		frames = append(frames, Frame{
			ID:      id,
			Object:  "chat.completion.chunk",
			Created: created,
			Model:   model,
			Choices: []FrameChoice{{
				Delta:        Delta{Content: content},
				Index:        i,
				FinishReason: "stop",
			}},
		})
	}
	return frames
}

// WriteSSE writes the frames as a text/event-stream response followed by
// exactly one terminal sentinel. Nothing is written after the sentinel.
func WriteSSE(w http.ResponseWriter, frames []Frame) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, _ := w.(http.Flusher)

	for _, frame := range frames {
		data, err := json.Marshal(frame)
		if err != nil {
			continue
		}
		_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
		if flusher != nil {
			flusher.Flush()
		}
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", SSEDone)
	if flusher != nil {
		flusher.Flush()
	}
}
