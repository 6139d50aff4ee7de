// Package schema holds the data types shared across pipeline stages.
package schema

import "time"

// Document is a retrieved knowledge-base document.
type Document struct {
	ID       string                 `json:"id"`
	Title    string                 `json:"title,omitempty"`
	Content  string                 `json:"content"`
	URL      string                 `json:"url,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// SearchResult pairs a document with its retrieval (or rerank) score.
type SearchResult struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}

// Citation is a user-visible source reference attached to a response.
type Citation struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// PipelineResult is the final outcome of one chat turn.
type PipelineResult struct {
	ResponseText      string     `json:"response_text"`
	Citations         []Citation `json:"citations"`
	FaithfulnessScore float64    `json:"faithfulness_score"`
	ModelUsed         string     `json:"model_used"`
	LanguageUsed      string     `json:"language_used"`
	UsedFallbackSearch bool      `json:"used_fallback_search"`
	FromCache         bool       `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
}

// Clone returns a deep copy so cached results cannot be mutated by callers.
func (p *PipelineResult) Clone() *PipelineResult {
	if p == nil {
		return nil
	}
	out := *p
	if p.Citations != nil {
		out.Citations = make([]Citation, len(p.Citations))
		copy(out.Citations, p.Citations)
	}
	return &out
}

// Turn is a single prior conversation turn passed to the classifier.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CloneResults deep-copies a result list.
func CloneResults(results []SearchResult) []SearchResult {
	if len(results) == 0 {
		return nil
	}
	out := make([]SearchResult, len(results))
	for i, res := range results {
		out[i].Score = res.Score
		out[i].Document = cloneDocument(res.Document)
	}
	return out
}

func cloneDocument(doc Document) Document {
	cloned := doc
	if doc.Metadata != nil {
		cloned.Metadata = make(map[string]interface{}, len(doc.Metadata))
		for k, v := range doc.Metadata {
			cloned.Metadata[k] = v
		}
	}
	return cloned
}
