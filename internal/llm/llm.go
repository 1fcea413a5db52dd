// Package llm abstracts the text-generation providers behind the AI assistance endpoints.
package llm

import (
	"context"
	"errors"
	"strings"
)

// ErrNotConfigured is returned when no provider credentials are set.
var ErrNotConfigured = errors.New("llm provider not configured")

// Prompt is a single completion request.
type Prompt struct {
	System string
	User   string
	// JSON asks the provider for a bare JSON object.
	JSON bool
}

// Client completes prompts against one provider.
type Client interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// Unconfigured is the Client used when no provider is set up.
type Unconfigured struct{}

func (Unconfigured) Complete(context.Context, Prompt) (string, error) {
	return "", ErrNotConfigured
}

// CleanJSON removes markdown code fences some models wrap around JSON output.
func CleanJSON(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
