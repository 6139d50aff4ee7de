// Package fusion merges ranked result lists. The orchestrator uses it to
// combine knowledge-base candidates with fallback web-search results before
// regenerating an answer.
package fusion

import (
	"sort"

	"github.com/verdantiq/climatechat/schema"
)

// DefaultRRFK is the standard reciprocal-rank-fusion damping constant.
const DefaultRRFK = 60

// RRFScore merges ranked lists with Reciprocal Rank Fusion: each document
// scores sum(1/(k+rank)) over the lists it appears in. Documents with empty
// IDs are skipped since they cannot be deduplicated.
func RRFScore(lists [][]schema.SearchResult, k int) []schema.SearchResult {
	if k <= 0 {
		k = DefaultRRFK
	}
	type agg struct {
		doc   schema.Document
		score float64
	}
	scores := map[string]*agg{}
	order := make([]string, 0)

	for _, list := range lists {
		for idx, item := range list {
			id := item.Document.ID
			if id == "" {
				continue
			}
			if _, ok := scores[id]; !ok {
				scores[id] = &agg{doc: item.Document}
				order = append(order, id)
			}
			scores[id].score += 1.0 / (float64(k) + float64(idx+1))
		}
	}

	out := make([]schema.SearchResult, 0, len(order))
	for _, id := range order {
		v := scores[id]
		out = append(out, schema.SearchResult{Document: v.doc, Score: v.score})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
