// Package guard scores how faithful a generated answer is to its source
// documents. Scores live in [0, 1]; the orchestrator treats anything below
// the configured threshold as unsupported and triggers fallback search.
package guard

import (
	"context"
	"fmt"

	"github.com/verdantiq/climatechat/config"
	"github.com/verdantiq/climatechat/llm"
	"github.com/verdantiq/climatechat/schema"
)

// Evaluator scores answer faithfulness against the retrieved documents.
type Evaluator interface {
	Score(ctx context.Context, query, answer string, docs []schema.SearchResult) (float64, error)
}

// NewEvaluator builds an evaluator from config. The LLM-judge evaluator
// needs a provider for the judging calls.
func NewEvaluator(cfg config.GuardConfig, judge llm.Provider) (Evaluator, error) {
	switch cfg.Provider {
	case "http":
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("guard http provider requires endpoint")
		}
		return &HTTPEvaluator{Endpoint: cfg.Endpoint}, nil
	case "llm", "":
		if judge == nil {
			return nil, fmt.Errorf("guard llm provider requires an llm provider")
		}
		return &LLMEvaluator{Provider: judge}, nil
	default:
		return nil, fmt.Errorf("unknown guard provider: %s", cfg.Provider)
	}
}

func joinDocs(docs []schema.SearchResult) string {
	out := ""
	for i, d := range docs {
		if i > 0 {
			out += "\n\n"
		}
		out += fmt.Sprintf("[%d] %s", i+1, d.Document.Content)
	}
	return out
}
