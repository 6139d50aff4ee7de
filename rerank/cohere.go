package rerank

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/verdantiq/climatechat/common/logger"
	"github.com/verdantiq/climatechat/config"
	"github.com/verdantiq/climatechat/schema"
)

const defaultCohereBaseURL = "https://api.cohere.com"

// CohereReranker calls the Cohere v2 rerank endpoint.
type CohereReranker struct {
	client *resty.Client
	model  string
}

// NewCohereReranker builds a reranker against Cohere's API, or a compatible
// endpoint when cfg.Endpoint is set.
func NewCohereReranker(cfg config.RerankConfig) *CohereReranker {
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = defaultCohereBaseURL
	}
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json")
	return &CohereReranker{client: client, model: cfg.Model}
}

type cohereRerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n,omitempty"`
}

type cohereRerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Rerank scores candidates with the rerank model. On any failure the
// original order is returned so a degraded reranker never blocks answers.
func (r *CohereReranker) Rerank(ctx context.Context, query string, in []schema.SearchResult, topN int) ([]schema.SearchResult, error) {
	if len(in) == 0 {
		return in, nil
	}
	docs := make([]string, len(in))
	for i, c := range in {
		docs[i] = c.Document.Content
	}

	var parsed cohereRerankResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(cohereRerankRequest{Model: r.model, Query: query, Documents: docs, TopN: topN}).
		SetResult(&parsed).
		Post("/v2/rerank")
	if err != nil {
		logger.Warnf("rerank: cohere request failed, using original order, err: %v", err)
		return passthrough(in, topN), nil
	}
	if resp.IsError() {
		logger.Warnf("rerank: cohere returned status %d, using original order", resp.StatusCode())
		return passthrough(in, topN), nil
	}
	if len(parsed.Results) == 0 {
		logger.Warnf("rerank: cohere returned no results, using original order")
		return passthrough(in, topN), nil
	}

	out := make([]schema.SearchResult, 0, len(parsed.Results))
	for _, res := range parsed.Results {
		if res.Index < 0 || res.Index >= len(in) {
			continue
		}
		c := in[res.Index]
		c.Score = res.RelevanceScore
		out = append(out, c)
	}
	sortByScore(out)
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}
