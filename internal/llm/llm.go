package llm

import (
	"context"
	"encoding/json"

	"keto-planner/internal/shared"
)

// ContentRequest describes one generation call.
type ContentRequest struct {
	Prompt string
	// ResponseMIMEType asks the provider for a structured payload, e.g. "application/json".
	ResponseMIMEType string
	// Schema is a JSON-schema style description of the expected payload. Providers that
	// cannot enforce a schema ignore it.
	Schema          map[string]any
	MaxOutputTokens int
}

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	// Structured holds a provider-native JSON payload when the provider returned one
	// separately from the text parts. It is as untrusted as Content.
	Structured json.RawMessage
	Usage      shared.TokenUsage
}

// TextGenerator is an interface for generating text from a prompt.
type TextGenerator interface {
	GenerateContent(ctx context.Context, req ContentRequest) (ContentResponse, error)
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}
