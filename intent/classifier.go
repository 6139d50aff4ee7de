// Package intent classifies a user turn into a conversational category plus
// an English rewrite, using a single structured-JSON call to a hosted model.
//
// Failure policy: both timeouts and malformed JSON FAIL OPEN — the turn is
// treated as on-topic with the original, un-rewritten query. A fail-closed
// default here once rejected legitimate climate questions as off-topic, so
// the policy is explicit, typed, and regression-tested.
package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/verdantiq/climatechat/common/logger"
	"github.com/verdantiq/climatechat/config"
	"github.com/verdantiq/climatechat/llm"
	"github.com/verdantiq/climatechat/schema"
)

// Category is the conversational category of one user turn.
type Category string

const (
	CategoryUnknown     Category = ""
	CategoryGreeting    Category = "greeting"
	CategoryGoodbye     Category = "goodbye"
	CategoryThanks      Category = "thanks"
	CategoryEmergency   Category = "emergency"
	CategoryInstruction Category = "instruction"
	CategoryOnTopic     Category = "on_topic"
	CategoryOffTopic    Category = "off_topic"
	CategoryHarmful     Category = "harmful"
)

var validCategories = map[Category]bool{
	CategoryGreeting:    true,
	CategoryGoodbye:     true,
	CategoryThanks:      true,
	CategoryEmergency:   true,
	CategoryInstruction: true,
	CategoryOnTopic:     true,
	CategoryOffTopic:    true,
	CategoryHarmful:     true,
}

// IsCanned reports whether the category is answered from fixed templates
// without retrieval or generation.
func (c Category) IsCanned() bool {
	switch c {
	case CategoryGreeting, CategoryGoodbye, CategoryThanks, CategoryEmergency, CategoryInstruction:
		return true
	}
	return false
}

// IsRejection reports whether the category gets a fixed rejection template.
func (c Category) IsRejection() bool {
	return c == CategoryOffTopic || c == CategoryHarmful
}

// Result is the structured classification of one user turn.
type Result struct {
	Category              Category `json:"category"`
	RewrittenQueryEnglish string   `json:"rewritten_query_english"`
	AskHowToUse           bool     `json:"ask_how_to_use"`
	HowItWorksRequested   bool     `json:"how_it_works_requested"`
}

// TimeoutError reports that the classification call exceeded its deadline.
type TimeoutError struct {
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("classification timed out after %s", e.Elapsed)
}

// ParseError reports that the model's JSON output failed schema validation.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("classification output invalid: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// FailOpen is the result callers must substitute when classification fails:
// on-topic with the original, un-rewritten query.
func FailOpen(query string) Result {
	return Result{Category: CategoryOnTopic, RewrittenQueryEnglish: query}
}

// Classifier produces a Result for a user turn.
type Classifier interface {
	Classify(ctx context.Context, query string, history []schema.Turn) (Result, error)
}

const classifySystemPrompt = `You classify user messages for a climate-education assistant and rewrite them in English.

Categories:
- greeting: hello, good morning, and similar openers
- goodbye: farewells
- thanks: expressions of gratitude
- emergency: the user reports an ongoing disaster or danger to life
- instruction: the user asks how to use this assistant
- on_topic: a question about climate, weather, environment, or adaptation
- off_topic: anything unrelated to climate or the assistant itself
- harmful: requests for dangerous, hateful, or exploitative content

Respond with ONLY a JSON object:
{"category": "<one of the categories>",
 "rewritten_query_english": "<the user's query rewritten as a standalone English question>",
 "ask_how_to_use": <true if the user asks how to use the assistant>,
 "how_it_works_requested": <true if the user asks how the assistant works internally>}`

// LLMClassifier calls a hosted model with a strict JSON contract.
type LLMClassifier struct {
	provider llm.Provider
	timeout  time.Duration
	history  *historyWindow
}

// NewLLMClassifier builds a classifier over the given provider.
func NewLLMClassifier(provider llm.Provider, cfg config.ClassifierConfig) *LLMClassifier {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 4 * time.Second
	}
	return &LLMClassifier{
		provider: provider,
		timeout:  timeout,
		history:  newHistoryWindow(cfg.HistoryTurns, cfg.HistoryTokenBudget),
	}
}

// Classify runs the classification call under a bounded deadline.
// On deadline it returns a *TimeoutError; on malformed output a *ParseError.
// Callers are expected to convert both into FailOpen(query).
func (c *LLMClassifier) Classify(ctx context.Context, query string, history []schema.Turn) (Result, error) {
	if strings.TrimSpace(query) == "" {
		return Result{}, fmt.Errorf("query must not be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := make([]llm.Message, 0, len(history)+1)
	for _, turn := range c.history.Truncate(history) {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: query})

	start := time.Now()
	raw, err := c.provider.Chat(ctx, classifySystemPrompt, messages)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return Result{}, &TimeoutError{Elapsed: time.Since(start)}
		}
		// Transport failures get the same fail-open treatment as timeouts;
		// surface them as a parse-class error so callers see one taxonomy.
		return Result{}, &ParseError{Err: err}
	}

	result, err := parseResult(raw)
	if err != nil {
		logger.Warnf("intent: unparseable classifier output: %v", err)
		return Result{}, &ParseError{Raw: raw, Err: err}
	}
	return result, nil
}

// parseResult validates the model's JSON strictly at this boundary so raw
// dynamic structures never travel deeper into the pipeline.
func parseResult(raw string) (Result, error) {
	payload := extractJSON(raw)
	if payload == "" {
		return Result{}, fmt.Errorf("no JSON object in output")
	}
	var out Result
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return Result{}, err
	}
	out.Category = Category(strings.ToLower(strings.TrimSpace(string(out.Category))))
	if !validCategories[out.Category] {
		return Result{}, fmt.Errorf("unknown category %q", out.Category)
	}
	if strings.TrimSpace(out.RewrittenQueryEnglish) == "" {
		return Result{}, fmt.Errorf("missing rewritten query")
	}
	return out, nil
}

// extractJSON pulls the first top-level JSON object out of model output that
// may be wrapped in markdown fences or prose.
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}
