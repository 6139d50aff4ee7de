// Package rerank reorders retrieval candidates with a cross-encoder before
// generation. Failures never break the pipeline: every implementation falls
// back to the original order, truncated to topN.
package rerank

import (
	"context"
	"sort"

	"github.com/verdantiq/climatechat/config"
	"github.com/verdantiq/climatechat/schema"
)

// Reranker reorders candidates by relevance to the query.
type Reranker interface {
	Rerank(ctx context.Context, query string, in []schema.SearchResult, topN int) ([]schema.SearchResult, error)
}

// NewReranker builds a reranker from config. Returns nil when reranking is
// disabled.
func NewReranker(cfg config.RerankConfig) Reranker {
	if !cfg.Enable {
		return nil
	}
	switch cfg.Provider {
	case "http":
		return &HTTPReranker{Endpoint: cfg.Endpoint}
	default:
		return NewCohereReranker(cfg)
	}
}

func passthrough(in []schema.SearchResult, topN int) []schema.SearchResult {
	if topN > 0 && len(in) > topN {
		return append([]schema.SearchResult(nil), in[:topN]...)
	}
	return in
}

func sortByScore(in []schema.SearchResult) {
	sort.SliceStable(in, func(i, j int) bool { return in[i].Score > in[j].Score })
}
