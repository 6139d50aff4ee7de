// Package embedding wraps the embedding model behind an OpenAI-compatible
// endpoint (a hosted BGE-M3 deployment in production).
package embedding

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/verdantiq/climatechat/config"
)

// Provider produces dense vectors for queries.
type Provider interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
}

type openaiProvider struct {
	client openai.Client
	model  string
}

// NewProvider creates an embedding provider from config.
func NewProvider(cfg config.EmbeddingConfig) (Provider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedding model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &openaiProvider{client: openai.NewClient(opts...), model: cfg.Model}, nil
}

func (p *openaiProvider) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(p.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding failed, err: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response contained no data")
	}
	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}
