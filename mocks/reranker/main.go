// Mock cross-encoder reranker for local development. Speaks the wire format
// of rerank.HTTPReranker: scores are keyword overlap between query and text.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
)

type candidate struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type rerankRequest struct {
	Query      string      `json:"query"`
	Candidates []candidate `json:"candidates"`
	TopN       int         `json:"top_n"`
}

type rankedItem struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

type rerankResponse struct {
	Ranking []rankedItem `json:"ranking"`
}

func overlap(query, text string) float64 {
	words := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(query)) {
		words[w] = true
	}
	if len(words) == 0 {
		return 0
	}
	hits := 0
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if words[w] {
			hits++
		}
	}
	return float64(hits) / float64(len(words))
}

func handleRerank(w http.ResponseWriter, r *http.Request) {
	var req rerankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	out := rerankResponse{}
	for _, c := range req.Candidates {
		out.Ranking = append(out.Ranking, rankedItem{ID: c.ID, Score: overlap(req.Query, c.Text)})
	}
	sort.SliceStable(out.Ranking, func(i, j int) bool { return out.Ranking[i].Score > out.Ranking[j].Score })
	if req.TopN > 0 && len(out.Ranking) > req.TopN {
		out.Ranking = out.Ranking[:req.TopN]
	}
	_ = json.NewEncoder(w).Encode(out)
}

func main() {
	addr := ":8082"
	if v := os.Getenv("RERANK_ADDR"); v != "" {
		addr = v
	}
	http.HandleFunc("/rerank", handleRerank)
	log.Printf("reranker mock listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, nil))
}
