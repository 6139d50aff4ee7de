package retriever

import (
	"context"
	"fmt"

	"github.com/verdantiq/climatechat/embedding"
	"github.com/verdantiq/climatechat/schema"
	"github.com/verdantiq/climatechat/vectordb"
)

// VectorRetriever embeds the query and searches the vector store directly.
// Used by self-hosted deployments; the hosted retrieval service does both
// steps server-side.
type VectorRetriever struct {
	Embed     embedding.Provider
	Store     vectordb.Store
	Threshold float64
}

func (r *VectorRetriever) Type() string { return "vector" }

func (r *VectorRetriever) Search(ctx context.Context, query string, topK int) ([]schema.SearchResult, error) {
	vec, err := r.Embed.GetEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query failed, err: %w", err)
	}
	results, err := r.Store.SearchDocs(ctx, vec, topK)
	if err != nil {
		return nil, err
	}
	if r.Threshold <= 0 {
		return results, nil
	}
	filtered := results[:0]
	for _, res := range results {
		if res.Score >= r.Threshold {
			filtered = append(filtered, res)
		}
	}
	return filtered, nil
}
