// Package transcript models multi-turn conversation state exchanged between
// approaches as a structured sequence of turns.
//
// Legacy approaches shuttle intermediate conversations inside a single string
// using "User:"/"Assistant:" markers. Parse and Format are the compatibility
// codec for that convention; new code should pass []Turn directly.
package transcript

import (
	"strings"

	"github.com/cortexflow-ai/reasongate/upstream"
)

// Marker prefixes used by the legacy string encoding.
const (
	userMarker      = "User:"
	assistantMarker = "Assistant:"
)

// Turn is one conversation turn.
type Turn struct {
	Role    string
	Content string
}

// HasMarkers reports whether s uses the legacy tagged encoding.
func HasMarkers(s string) bool {
	return strings.Contains(s, userMarker) || strings.Contains(s, assistantMarker)
}

// Parse decodes a tagged conversation string into turns. Text before the
// first marker is discarded. Returns nil when s carries no markers.
func Parse(s string) []Turn {
	if !HasMarkers(s) {
		return nil
	}
	s = strings.TrimSpace(s)

	var turns []Turn
	for len(s) > 0 {
		var role string
		ui := strings.Index(s, userMarker)
		ai := strings.Index(s, assistantMarker)
		switch {
		case ui == -1 && ai == -1:
			return turns
		case ai == -1 || (ui != -1 && ui < ai):
			role = upstream.RoleUser
			s = s[ui+len(userMarker):]
		default:
			role = upstream.RoleAssistant
			s = s[ai+len(assistantMarker):]
		}

		// Content runs until the next marker.
		end := len(s)
		if ni := strings.Index(s, userMarker); ni != -1 && ni < end {
			end = ni
		}
		if ni := strings.Index(s, assistantMarker); ni != -1 && ni < end {
			end = ni
		}
		turns = append(turns, Turn{Role: role, Content: strings.TrimSpace(s[:end])})
		s = s[end:]
	}
	return turns
}

// Format encodes turns back into the legacy tagged string.
func Format(turns []Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case upstream.RoleAssistant:
			lines = append(lines, assistantMarker+" "+t.Content)
		default:
			lines = append(lines, userMarker+" "+t.Content)
		}
	}
	return strings.Join(lines, "\n")
}

// FinalAssistant reduces a possibly tagged result string to its user-facing
// content: the last assistant turn when markers are present, otherwise s is
// returned unchanged. A tagged string without any assistant turn falls back
// to the last turn's content.
func FinalAssistant(s string) string {
	turns := Parse(s)
	if len(turns) == 0 {
		return s
	}
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == upstream.RoleAssistant {
			return turns[i].Content
		}
	}
	return turns[len(turns)-1].Content
}

// FlattenConversation splits the request messages into the system prompt and
// the tagged query string approaches consume. User and assistant turns are
// flattened in order; multipart content collapses to plain text.
func FlattenConversation(messages []upstream.Message) (systemPrompt, query string) {
	var turns []Turn
	for _, msg := range messages {
		text := msg.FlatContent()
		switch msg.Role {
		case upstream.RoleSystem:
			systemPrompt = text
		case upstream.RoleUser:
			turns = append(turns, Turn{Role: upstream.RoleUser, Content: text})
		case upstream.RoleAssistant:
			turns = append(turns, Turn{Role: upstream.RoleAssistant, Content: text})
		}
	}
	return systemPrompt, Format(turns)
}
