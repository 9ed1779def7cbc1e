// Package modelspec parses composite model identifiers of the form
//
//	approach1&approach2-gpt-4o-mini
//
// into the combination operator, the ordered approach slugs, and the base
// model name passed to the backend.
package modelspec

import "strings"

// Operation says how multiple approaches combine.
type Operation string

// Operation values.
const (
	OpSingle Operation = "SINGLE" // one approach
	OpAnd    Operation = "AND"    // sequential pipeline
	OpOr     Operation = "OR"     // concurrent fan-out
)

// Spec is a parsed composite model identifier.
type Spec struct {
	Operation  Operation
	Approaches []string
	Model      string
}

// KnownFunc reports whether a slug names a known approach (built-in or
// registered extension).
type KnownFunc func(slug string) bool

// Parse splits a composite model identifier into its Spec.
//
// Tokens are scanned left to right while they name known approaches. A token
// containing '&' selects the AND operation and contributes every piece; '|'
// likewise for OR. The first token matching neither stops approach parsing:
// it and everything after it form the base model name. The literal "auto"
// short-circuits to the passthrough approach.
//
// Mixing '&' and '|' tokens in one identifier is not validated; the last
// operator-setting token wins. This mirrors the historical behaviour and is
// left as-is deliberately.
func Parse(model string, known KnownFunc) Spec {
	if model == "auto" {
		return Spec{Operation: OpSingle, Approaches: []string{"none"}, Model: model}
	}

	parts := strings.Split(model, "-")
	var approaches []string
	var modelParts []string
	op := OpSingle
	parsingApproaches := true

	for _, part := range parts {
		if !parsingApproaches {
			modelParts = append(modelParts, part)
			continue
		}
		switch {
		case known(part):
			approaches = append(approaches, part)
		case strings.Contains(part, "&"):
			op = OpAnd
			approaches = append(approaches, strings.Split(part, "&")...)
		case strings.Contains(part, "|"):
			op = OpOr
			approaches = append(approaches, strings.Split(part, "|")...)
		default:
			parsingApproaches = false
			modelParts = append(modelParts, part)
		}
	}

	if len(approaches) == 0 {
		return Spec{Operation: OpSingle, Approaches: []string{"none"}, Model: model}
	}
	return Spec{
		Operation:  op,
		Approaches: approaches,
		Model:      strings.Join(modelParts, "-"),
	}
}
