package guard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/verdantiq/climatechat/common/httpx"
	"github.com/verdantiq/climatechat/schema"
)

// HTTPEvaluator calls an external faithfulness service.
//
// Request:  {"query":"...","answer":"...","context":"..."}
// Response: {"score":0.85}
type HTTPEvaluator struct {
	Endpoint string
	Client   *httpx.Client
}

type evalRequest struct {
	Query   string `json:"query"`
	Answer  string `json:"answer"`
	Context string `json:"context"`
}

type evalResponse struct {
	Score float64 `json:"score"`
}

func (h *HTTPEvaluator) Score(ctx context.Context, query, answer string, docs []schema.SearchResult) (float64, error) {
	if h.Client == nil {
		h.Client = httpx.NewFromConfig(nil)
	}
	bs, _ := json.Marshal(evalRequest{Query: query, Answer: answer, Context: joinDocs(docs)})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.Endpoint, bytes.NewReader(bs))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("faithfulness request failed, err: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("faithfulness service returned status %d", resp.StatusCode)
	}
	var er evalResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return 0, fmt.Errorf("decode faithfulness response failed, err: %w", err)
	}
	if er.Score < 0 || er.Score > 1 {
		return 0, fmt.Errorf("faithfulness score %f out of range", er.Score)
	}
	return er.Score, nil
}
