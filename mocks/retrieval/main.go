// Mock retrieval service for local development. Speaks the wire format of
// retriever.HTTPRetriever and serves a tiny fixed climate corpus.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
)

type retrieveRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type document struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
	URL     string  `json:"url"`
	Score   float64 `json:"score"`
}

type retrieveResponse struct {
	Documents []document `json:"documents"`
}

var corpus = []document{
	{ID: "kb-1", Title: "The greenhouse effect", Content: "Greenhouse gases such as carbon dioxide and methane trap heat in the atmosphere, warming the planet.", URL: "https://example.org/kb/greenhouse"},
	{ID: "kb-2", Title: "Sea level rise", Content: "Melting ice sheets and thermal expansion of seawater are raising global sea levels.", URL: "https://example.org/kb/sea-level"},
	{ID: "kb-3", Title: "Heat waves", Content: "Climate change makes heat waves longer, hotter, and more frequent in most regions.", URL: "https://example.org/kb/heat-waves"},
	{ID: "kb-4", Title: "Preparing for floods", Content: "Households can prepare for floods by storing documents high, keeping emergency kits, and knowing evacuation routes.", URL: "https://example.org/kb/floods"},
}

func handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.TopK <= 0 {
		req.TopK = 10
	}
	query := strings.ToLower(req.Query)
	out := retrieveResponse{}
	for _, doc := range corpus {
		score := 0.3
		for _, word := range strings.Fields(query) {
			if strings.Contains(strings.ToLower(doc.Content), word) {
				score += 0.15
			}
		}
		doc.Score = score
		out.Documents = append(out.Documents, doc)
		if len(out.Documents) >= req.TopK {
			break
		}
	}
	_ = json.NewEncoder(w).Encode(out)
}

func main() {
	addr := ":8083"
	if v := os.Getenv("RETRIEVAL_ADDR"); v != "" {
		addr = v
	}
	http.HandleFunc("/retrieve", handleRetrieve)
	log.Printf("retrieval mock listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, nil))
}
