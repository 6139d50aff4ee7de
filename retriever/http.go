package retriever

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/verdantiq/climatechat/common/httpx"
	"github.com/verdantiq/climatechat/schema"
)

// HTTPRetriever calls the hosted retrieval service, which owns the vector
// index and embedding model.
//
// Request:  {"query":"...","top_k":10}
// Response: {"documents":[{"id","title","content","url","score","metadata"}]}
type HTTPRetriever struct {
	Endpoint  string
	APIKey    string
	Threshold float64
	Client    *httpx.Client
}

func (r *HTTPRetriever) Type() string { return "http" }

type retrieveRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type retrieveResponse struct {
	Documents []struct {
		ID       string                 `json:"id"`
		Title    string                 `json:"title"`
		Content  string                 `json:"content"`
		URL      string                 `json:"url"`
		Score    float64                `json:"score"`
		Metadata map[string]interface{} `json:"metadata"`
	} `json:"documents"`
}

func (r *HTTPRetriever) Search(ctx context.Context, query string, topK int) ([]schema.SearchResult, error) {
	if r.Endpoint == "" {
		return nil, fmt.Errorf("retrieval endpoint not configured")
	}
	if topK <= 0 {
		topK = 10
	}
	body, _ := json.Marshal(retrieveRequest{Query: query, TopK: topK})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.APIKey)
	}
	if r.Client == nil {
		r.Client = httpx.NewFromConfig(nil)
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("retrieval request failed, err: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("retrieval service returned status %d", resp.StatusCode)
	}
	var rr retrieveResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, fmt.Errorf("decode retrieval response failed, err: %w", err)
	}
	out := make([]schema.SearchResult, 0, len(rr.Documents))
	for _, d := range rr.Documents {
		if r.Threshold > 0 && d.Score < r.Threshold {
			continue
		}
		out = append(out, schema.SearchResult{
			Document: schema.Document{
				ID:       d.ID,
				Title:    d.Title,
				Content:  d.Content,
				URL:      d.URL,
				Metadata: d.Metadata,
			},
			Score: d.Score,
		})
	}
	return out, nil
}
