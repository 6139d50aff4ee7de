package retriever

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/verdantiq/climatechat/common/httpx"
	"github.com/verdantiq/climatechat/common/logger"
	"github.com/verdantiq/climatechat/schema"
)

// WebSearchRetriever is the fallback search provider used when faithfulness
// drops below threshold. Tavily-style APIs are supported with an API key;
// DuckDuckGo's instant-answer API is the keyless default.
type WebSearchRetriever struct {
	Provider string // tavily, duckduckgo
	Endpoint string
	APIKey   string
	Client   *httpx.Client
}

func (r *WebSearchRetriever) Type() string { return "web" }

func (r *WebSearchRetriever) Search(ctx context.Context, query string, topK int) ([]schema.SearchResult, error) {
	if topK <= 0 {
		topK = 3
	}
	if r.Client == nil {
		r.Client = httpx.NewFromConfig(nil)
	}
	switch r.Provider {
	case "tavily":
		return r.searchTavily(ctx, query, topK)
	case "duckduckgo", "":
		return r.searchDuckDuckGo(ctx, query, topK)
	default:
		logger.Warnf("retriever: unknown web provider %q, using duckduckgo", r.Provider)
		return r.searchDuckDuckGo(ctx, query, topK)
	}
}

type tavilyRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

func (r *WebSearchRetriever) searchTavily(ctx context.Context, query string, topK int) ([]schema.SearchResult, error) {
	if r.APIKey == "" {
		return nil, fmt.Errorf("tavily search requires api key")
	}
	endpoint := r.Endpoint
	if endpoint == "" {
		endpoint = "https://api.tavily.com/search"
	}
	body, _ := json.Marshal(tavilyRequest{Query: query, MaxResults: topK})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.APIKey)
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily search failed, err: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("tavily returned status %d", resp.StatusCode)
	}
	var tr tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, err
	}
	out := make([]schema.SearchResult, 0, len(tr.Results))
	for _, v := range tr.Results {
		out = append(out, schema.SearchResult{
			Document: schema.Document{
				ID:      v.URL,
				Title:   v.Title,
				Content: v.Content,
				URL:     v.URL,
				Metadata: map[string]interface{}{
					"source": "fallback_search",
				},
			},
			Score: v.Score,
		})
	}
	return out, nil
}

func (r *WebSearchRetriever) searchDuckDuckGo(ctx context.Context, query string, topK int) ([]schema.SearchResult, error) {
	endpoint := r.Endpoint
	if endpoint == "" {
		endpoint = "https://api.duckduckgo.com/"
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo search failed, err: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("duckduckgo returned status %d", resp.StatusCode)
	}

	var ddg struct {
		AbstractText   string `json:"AbstractText"`
		AbstractSource string `json:"AbstractSource"`
		AbstractURL    string `json:"AbstractURL"`
		RelatedTopics  []struct {
			Text     string `json:"Text"`
			FirstURL string `json:"FirstURL"`
		} `json:"RelatedTopics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ddg); err != nil {
		return nil, err
	}

	out := make([]schema.SearchResult, 0, topK)
	if ddg.AbstractText != "" {
		out = append(out, schema.SearchResult{
			Document: schema.Document{
				ID:      ddg.AbstractURL,
				Title:   ddg.AbstractSource,
				Content: ddg.AbstractText,
				URL:     ddg.AbstractURL,
				Metadata: map[string]interface{}{
					"source": "fallback_search",
				},
			},
		})
	}
	for _, topic := range ddg.RelatedTopics {
		if len(out) >= topK {
			break
		}
		if topic.Text == "" || topic.FirstURL == "" {
			continue
		}
		title := topic.Text
		if len(title) > 100 {
			title = title[:100]
		}
		out = append(out, schema.SearchResult{
			Document: schema.Document{
				ID:      topic.FirstURL,
				Title:   title,
				Content: topic.Text,
				URL:     topic.FirstURL,
				Metadata: map[string]interface{}{
					"source": "fallback_search",
				},
			},
		})
	}
	logger.Infof("retriever: duckduckgo returned %d results", len(out))
	return out, nil
}
