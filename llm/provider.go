// Package llm wraps the hosted generation models behind one provider
// interface. Two families are supported: Nova (reached through an
// OpenAI-compatible gateway) and Cohere Command-A.
package llm

import (
	"context"
	"fmt"

	"github.com/verdantiq/climatechat/config"
)

// Message is a single chat turn sent to a model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider is a hosted chat model.
type Provider interface {
	// GenerateCompletion runs a single-prompt completion.
	GenerateCompletion(ctx context.Context, prompt string) (string, error)
	// Chat runs a system-prompted conversation and returns the reply text.
	Chat(ctx context.Context, system string, messages []Message) (string, error)
	// GetProviderType names the provider family ("nova", "cohere", ...).
	GetProviderType() string
}

// NewProvider creates a provider from config.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "nova", "openai":
		return newOpenAIProvider(cfg)
	case "cohere":
		return newCohereProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
