package llm

import (
	"context"
	"fmt"

	"keto-planner/internal/config"
)

// NewFromConfig builds the client for the configured LLM provider.
func NewFromConfig(ctx context.Context, cfg *config.Config) (Client, error) {
	switch cfg.LLMProvider {
	case config.ProviderGemini, "":
		return NewGeminiClient(ctx, cfg)
	case config.ProviderGroq:
		return NewGroqClient(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.LLMProvider)
	}
}
