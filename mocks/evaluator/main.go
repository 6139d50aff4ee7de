// Mock faithfulness scorer for local development. Speaks the wire format of
// guard.HTTPEvaluator: answers that share words with the context score high.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
)

type evalRequest struct {
	Query   string `json:"query"`
	Answer  string `json:"answer"`
	Context string `json:"context"`
}

type evalResponse struct {
	Score float64 `json:"score"`
}

func handleEval(w http.ResponseWriter, r *http.Request) {
	var req evalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	resp := evalResponse{Score: 0.1}
	if req.Context != "" && req.Answer != "" {
		ctxWords := map[string]bool{}
		for _, word := range strings.Fields(strings.ToLower(req.Context)) {
			ctxWords[word] = true
		}
		hits, total := 0, 0
		for _, word := range strings.Fields(strings.ToLower(req.Answer)) {
			total++
			if ctxWords[word] {
				hits++
			}
		}
		if total > 0 {
			resp.Score = float64(hits) / float64(total)
		}
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func main() {
	addr := ":8081"
	if v := os.Getenv("EVAL_ADDR"); v != "" {
		addr = v
	}
	http.HandleFunc("/eval", handleEval)
	log.Printf("faithfulness mock listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, nil))
}
