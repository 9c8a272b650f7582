// Package llm defines the text-generation capability consumed by the
// reasoning layer and the adapters that provide it.
//
// A Generator returns raw UTF-8 text. Empty text is not an error: callers
// check IsEmpty and treat it as a soft failure. Adapters classify remote
// failures with the resilience error kinds so retries and breakers can act on
// them; Protected composes both around any Generator.
package llm

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyResponse marks a generation that returned no text
var ErrEmptyResponse = errors.New("empty generation response")

// SamplingParams controls a single generation call
type SamplingParams struct {
	Temperature float64
	MaxTokens   int
}

// Generator produces text for a prompt
type Generator interface {
	Generate(ctx context.Context, prompt string, params SamplingParams) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface
type GeneratorFunc func(ctx context.Context, prompt string, params SamplingParams) (string, error)

// Generate calls f
func (f GeneratorFunc) Generate(ctx context.Context, prompt string, params SamplingParams) (string, error) {
	return f(ctx, prompt, params)
}

// IsEmpty reports whether generated text carries no content
func IsEmpty(text string) bool {
	return strings.TrimSpace(text) == ""
}
