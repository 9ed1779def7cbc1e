package render

import "github.com/cortexflow-ai/reasongate/upstream"

// ExtractContents pulls the content string out of every choice of a raw
// backend completion. Used when a passthrough result still has to be
// re-framed as an event stream.
func ExtractContents(resp *upstream.ChatResponse) []string {
	if resp == nil {
		return nil
	}
	contents := make([]string, 0, len(resp.Choices))
	for _, c := range resp.Choices {
		contents = append(contents, c.Message.FlatContent())
	}
	return contents
}
