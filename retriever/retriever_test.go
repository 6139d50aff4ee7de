package retriever

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPRetrieverSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req retrieveRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "sea level rise", req.Query)
		assert.Equal(t, 5, req.TopK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"documents": []map[string]interface{}{
				{"id": "d1", "title": "Oceans", "content": "Seas are rising.", "url": "https://kb/d1", "score": 0.9},
				{"id": "d2", "title": "Weak", "content": "Barely related.", "url": "https://kb/d2", "score": 0.2},
			},
		})
	}))
	defer srv.Close()

	r := &HTTPRetriever{Endpoint: srv.URL, Threshold: 0.5}
	out, err := r.Search(context.Background(), "sea level rise", 5)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "d1", out[0].Document.ID)
	assert.Equal(t, 0.9, out[0].Score)
}

func TestHTTPRetrieverServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	r := &HTTPRetriever{Endpoint: srv.URL}
	_, err := r.Search(context.Background(), "q", 3)
	assert.Error(t, err)
}

func TestHTTPRetrieverMissingEndpoint(t *testing.T) {
	r := &HTTPRetriever{}
	_, err := r.Search(context.Background(), "q", 3)
	assert.Error(t, err)
}

func TestWebSearchTavily(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key-123", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{
				{"title": "Report", "url": "https://web/1", "content": "Fresh findings.", "score": 0.8},
			},
		})
	}))
	defer srv.Close()

	r := &WebSearchRetriever{Provider: "tavily", Endpoint: srv.URL, APIKey: "key-123"}
	out, err := r.Search(context.Background(), "latest emissions data", 3)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "fallback_search", out[0].Document.Metadata["source"])
}

func TestWebSearchTavilyRequiresKey(t *testing.T) {
	r := &WebSearchRetriever{Provider: "tavily"}
	_, err := r.Search(context.Background(), "q", 3)
	assert.Error(t, err)
}

func TestWebSearchDuckDuckGo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"AbstractText":   "Climate change is long-term shifts in temperatures.",
			"AbstractSource": "Encyclopedia",
			"AbstractURL":    "https://web/abstract",
			"RelatedTopics": []map[string]interface{}{
				{"Text": "Greenhouse gases overview", "FirstURL": "https://web/topic1"},
				{"Text": "", "FirstURL": "https://web/skipped"},
			},
		})
	}))
	defer srv.Close()

	r := &WebSearchRetriever{Provider: "duckduckgo", Endpoint: srv.URL}
	out, err := r.Search(context.Background(), "climate change", 3)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "https://web/abstract", out[0].Document.URL)
	assert.Equal(t, "https://web/topic1", out[1].Document.URL)
}
