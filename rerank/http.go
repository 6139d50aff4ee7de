package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/verdantiq/climatechat/common/httpx"
	"github.com/verdantiq/climatechat/common/logger"
	"github.com/verdantiq/climatechat/schema"
)

// HTTPReranker posts candidates to a self-hosted cross-encoder service.
//
// Request:  {"query":"...","candidates":[{"id":"","text":""}],"top_n":5}
// Response: {"ranking":[{"id":"","score":0.9}]}
type HTTPReranker struct {
	Endpoint string
	Client   *httpx.Client
}

type httpRerankRequest struct {
	Query      string                `json:"query"`
	Candidates []httpRerankCandidate `json:"candidates"`
	TopN       int                   `json:"top_n,omitempty"`
}

type httpRerankCandidate struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type httpRerankResponse struct {
	Ranking []struct {
		ID    string  `json:"id"`
		Score float64 `json:"score"`
	} `json:"ranking"`
}

func (h *HTTPReranker) Rerank(ctx context.Context, query string, in []schema.SearchResult, topN int) ([]schema.SearchResult, error) {
	if h.Endpoint == "" || len(in) == 0 {
		return passthrough(in, topN), nil
	}
	req := httpRerankRequest{Query: query, TopN: topN}
	idx := make(map[string]int, len(in))
	req.Candidates = make([]httpRerankCandidate, 0, len(in))
	for i, c := range in {
		idx[c.Document.ID] = i
		req.Candidates = append(req.Candidates, httpRerankCandidate{ID: c.Document.ID, Text: c.Document.Content})
	}
	bs, _ := json.Marshal(req)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.Endpoint, bytes.NewReader(bs))
	if err != nil {
		return passthrough(in, topN), nil
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if h.Client == nil {
		h.Client = httpx.NewFromConfig(nil)
	}
	resp, err := h.Client.Do(httpReq)
	if err != nil {
		logger.Warnf("rerank: http reranker failed, using original order, err: %v", err)
		return passthrough(in, topN), nil
	}
	defer resp.Body.Close()
	var rr httpRerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil || len(rr.Ranking) == 0 {
		return passthrough(in, topN), nil
	}

	out := make([]schema.SearchResult, 0, len(rr.Ranking))
	for _, r := range rr.Ranking {
		if i, ok := idx[r.ID]; ok {
			c := in[i]
			c.Score = r.Score
			out = append(out, c)
		}
	}
	sortByScore(out)
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}
