// Package orchestrator runs the chat pipeline: route, classify, then either
// a canned short-circuit or retrieve-rerank-generate-guard with one optional
// fallback search, finishing with translation back to the user's language.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"github.com/verdantiq/climatechat/cache"
	"github.com/verdantiq/climatechat/canned"
	"github.com/verdantiq/climatechat/common/logger"
	"github.com/verdantiq/climatechat/config"
	"github.com/verdantiq/climatechat/fusion"
	"github.com/verdantiq/climatechat/guard"
	"github.com/verdantiq/climatechat/intent"
	"github.com/verdantiq/climatechat/llm"
	"github.com/verdantiq/climatechat/metrics"
	"github.com/verdantiq/climatechat/rerank"
	"github.com/verdantiq/climatechat/retriever"
	"github.com/verdantiq/climatechat/router"
	"github.com/verdantiq/climatechat/schema"
	"github.com/verdantiq/climatechat/translate"
)

// Request is one chat turn entering the pipeline.
type Request struct {
	Query        string
	LanguageCode string
	History      []schema.Turn
	// SkipCache bypasses the cache lookup; the fresh result still updates
	// the cache for later requests.
	SkipCache bool
	// Progress, when set, receives stage transitions as they happen. Used
	// by the streaming endpoint; nil for plain requests.
	Progress func(stage Stage)
}

// Orchestrator wires the pipeline stages. All collaborators are interfaces
// so tests can count calls and force failures per stage.
type Orchestrator struct {
	Cfg        *config.Config
	Router     *router.Router
	Classifier intent.Classifier
	Canned     *canned.Dispatcher
	Translate  *translate.Service
	Retriever  retriever.Retriever
	Fallback   retriever.Retriever
	Reranker   rerank.Reranker
	Guard      guard.Evaluator
	Nova       llm.Provider
	Cohere     llm.Provider
	Cache      *cache.ResponseCache

	// flight collapses concurrent identical cache misses into one pipeline
	// execution.
	flight singleflight.Group
}

// Run executes one chat turn end to end.
func (o *Orchestrator) Run(ctx context.Context, req *Request) (*schema.PipelineResult, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, stageErr(StageRoute, fmt.Errorf("query must not be empty"))
	}

	// ROUTE
	req.progress(StageRoute)
	decision, err := o.Router.Decide(req.LanguageCode, intent.CategoryUnknown)
	if err != nil {
		return nil, stageErr(StageRoute, err)
	}
	metrics.IncRouting(decision.LanguageCode, string(decision.ModelType))

	// CLASSIFY
	req.progress(StageClassify)
	start := time.Now()
	cls, err := o.Classifier.Classify(ctx, req.Query, req.History)
	metrics.ObserveStage(string(StageClassify), start)
	failOpen := false
	if err != nil {
		var timeoutErr *intent.TimeoutError
		var parseErr *intent.ParseError
		if errors.As(err, &timeoutErr) || errors.As(err, &parseErr) {
			logger.Warnf("orchestrator: classification degraded, failing open: %v", err)
			cls = intent.FailOpen(req.Query)
			failOpen = true
		} else {
			return nil, stageErr(StageClassify, err)
		}
	}
	metrics.IncIntent(string(cls.Category), failOpen)

	// Canned and rejection categories skip retrieval and generation.
	if cls.Category != intent.CategoryOnTopic {
		req.progress(StageCanned)
		tr := o.Translate.For(decision.TranslationProvider)
		text, handled, err := o.Canned.Dispatch(ctx, cls.Category, decision.LanguageCode, tr)
		if err != nil {
			return nil, stageErr(StageCanned, err)
		}
		if handled {
			metrics.IncCanned(string(cls.Category))
			req.progress(StageDone)
			return &schema.PipelineResult{
				ResponseText: text,
				ModelUsed:    "canned",
				LanguageUsed: decision.LanguageCode,
				CreatedAt:    time.Now().UTC(),
			}, nil
		}
	}

	// Cache lookup happens after classification so canned turns never
	// occupy cache slots.
	req.progress(StageCacheLookup)
	key := cache.Fingerprint(cls.RewrittenQueryEnglish, decision.LanguageCode, o.modelName(decision.ModelType))
	if o.Cache != nil && !req.SkipCache {
		if cached, ok := o.Cache.Get(ctx, key); ok {
			metrics.IncCacheHit()
			cached.FromCache = true
			req.progress(StageDone)
			return cached, nil
		}
		metrics.IncCacheMiss()
	}

	v, err, _ := o.flight.Do(key, func() (interface{}, error) {
		return o.answer(ctx, req, decision, cls)
	})
	if err != nil {
		return nil, err
	}
	result := v.(*schema.PipelineResult).Clone()

	if o.Cache != nil {
		o.Cache.Set(ctx, key, result)
	}
	req.progress(StageDone)
	return result, nil
}

// answer runs the retrieval-backed half of the pipeline for on-topic turns.
func (o *Orchestrator) answer(ctx context.Context, req *Request, decision router.Decision, cls intent.Result) (*schema.PipelineResult, error) {
	query := cls.RewrittenQueryEnglish

	// RETRIEVE
	req.progress(StageRetrieve)
	docs, err := o.retrieve(ctx, query)
	if err != nil {
		metrics.IncPipelineError(string(StageRetrieve))
		return nil, stageErr(StageRetrieve, &RetrievalError{Err: err})
	}

	// RERANK
	if o.Reranker != nil && len(docs) > 0 {
		req.progress(StageRerank)
		start := time.Now()
		docs, err = o.Reranker.Rerank(ctx, query, docs, o.topN())
		metrics.ObserveStage(string(StageRerank), start)
		if err != nil {
			// Rerankers degrade to original order internally; an error here
			// is unexpected but not fatal.
			logger.Warnf("orchestrator: rerank failed, keeping retrieval order: %v", err)
		}
	}

	// GENERATE
	req.progress(StageGenerate)
	answer, err := o.generate(ctx, decision.ModelType, query, docs)
	if err != nil {
		metrics.IncPipelineError(string(StageGenerate))
		return nil, stageErr(StageGenerate, err)
	}

	// GUARD
	score := 1.0
	if o.Guard != nil && len(docs) > 0 {
		req.progress(StageGuard)
		start := time.Now()
		score, err = o.scoreGuard(ctx, query, answer, docs)
		metrics.ObserveStage(string(StageGuard), start)
		if err != nil {
			// A broken guard must not block answers; keep the response and
			// record a zero score so dashboards show the degradation.
			logger.Warnf("orchestrator: faithfulness scoring failed: %v", err)
			score = 0
		}
		metrics.ObserveFaithfulness(score)
	}

	usedFallback := false
	if o.shouldFallback(score, err) {
		req.progress(StageFallback)
		metrics.IncFallbackSearch()
		fbDocs, fbErr := o.fallbackSearch(ctx, query)
		if fbErr != nil {
			logger.Warnf("orchestrator: fallback search failed, keeping original answer: %v", fbErr)
		} else if len(fbDocs) > 0 {
			usedFallback = true
			docs = fusion.RRFScore([][]schema.SearchResult{docs, fbDocs}, fusion.DefaultRRFK)
			if o.topN() > 0 && len(docs) > o.topN() {
				docs = docs[:o.topN()]
			}
			answer, err = o.generate(ctx, decision.ModelType, query, docs)
			if err != nil {
				metrics.IncPipelineError(string(StageGenerate))
				return nil, stageErr(StageGenerate, err)
			}
			if o.Guard != nil {
				if rescored, gerr := o.scoreGuard(ctx, query, answer, docs); gerr == nil {
					score = rescored
					metrics.ObserveFaithfulness(score)
				}
			}
		}
	}

	// TRANSLATE_OUT
	if decision.NeedsTranslationOut {
		req.progress(StageTranslateOut)
		tr := o.Translate.For(decision.TranslationProvider)
		translated, terr := tr.Translate(ctx, answer, decision.LanguageCode)
		if terr != nil {
			// An English answer still beats an error page.
			logger.Warnf("orchestrator: output translation to %s failed, returning English: %v",
				decision.LanguageCode, terr)
		} else {
			answer = translated
		}
	}

	return &schema.PipelineResult{
		ResponseText:       answer,
		Citations:          buildCitations(docs),
		FaithfulnessScore:  score,
		ModelUsed:          o.modelName(decision.ModelType),
		LanguageUsed:       decision.LanguageCode,
		UsedFallbackSearch: usedFallback,
		CreatedAt:          time.Now().UTC(),
	}, nil
}

func (o *Orchestrator) retrieve(ctx context.Context, query string) ([]schema.SearchResult, error) {
	if o.Retriever == nil {
		return nil, nil
	}
	topK := 10
	var timeout time.Duration
	if o.Cfg != nil {
		if o.Cfg.Retrieval.TopK > 0 {
			topK = o.Cfg.Retrieval.TopK
		}
		timeout = time.Duration(o.Cfg.Retrieval.TimeoutMs) * time.Millisecond
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	start := time.Now()
	docs, err := o.Retriever.Search(ctx, query, topK)
	metrics.ObserveStage(string(StageRetrieve), start)
	return docs, err
}

func (o *Orchestrator) fallbackSearch(ctx context.Context, query string) ([]schema.SearchResult, error) {
	maxResults := 3
	var timeout time.Duration
	if o.Cfg != nil {
		if o.Cfg.Fallback.MaxResults > 0 {
			maxResults = o.Cfg.Fallback.MaxResults
		}
		timeout = time.Duration(o.Cfg.Fallback.TimeoutMs) * time.Millisecond
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	start := time.Now()
	docs, err := o.Fallback.Search(ctx, query, maxResults)
	metrics.ObserveStage(string(StageFallback), start)
	return docs, err
}

func (o *Orchestrator) generate(ctx context.Context, model router.ModelType, query string, docs []schema.SearchResult) (string, error) {
	provider := o.Nova
	if model == router.ModelCohere {
		provider = o.Cohere
	}
	if provider == nil {
		return "", &GenerationError{Model: string(model), Err: fmt.Errorf("no provider configured")}
	}
	contexts := make([]string, 0, len(docs))
	for _, d := range docs {
		contexts = append(contexts, d.Document.Content)
	}
	start := time.Now()
	answer, err := provider.GenerateCompletion(ctx, llm.BuildAnswerPrompt(query, contexts))
	metrics.ObserveStage(string(StageGenerate), start)
	if err != nil {
		return "", &GenerationError{Model: string(model), Err: err}
	}
	return strings.TrimSpace(answer), nil
}

func (o *Orchestrator) scoreGuard(ctx context.Context, query, answer string, docs []schema.SearchResult) (float64, error) {
	var timeout time.Duration
	if o.Cfg != nil {
		timeout = time.Duration(o.Cfg.Guard.TimeoutMs) * time.Millisecond
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return o.Guard.Score(ctx, query, answer, docs)
}

// shouldFallback decides whether the low-faithfulness fallback search runs.
// It runs at most once per turn, only when enabled and a fallback retriever
// exists, and never when the guard itself errored (guardErr non-nil means
// the score is a placeholder, not a judgment).
func (o *Orchestrator) shouldFallback(score float64, guardErr error) bool {
	if o.Fallback == nil || o.Guard == nil || guardErr != nil {
		return false
	}
	if o.Cfg == nil || !o.Cfg.Fallback.Enable {
		return false
	}
	return score < o.threshold()
}

func (o *Orchestrator) threshold() float64 {
	if o.Cfg != nil && o.Cfg.Guard.Threshold > 0 {
		return o.Cfg.Guard.Threshold
	}
	return 0.7
}

func (o *Orchestrator) topN() int {
	if o.Cfg != nil && o.Cfg.Rerank.TopN > 0 {
		return o.Cfg.Rerank.TopN
	}
	return 5
}

func (o *Orchestrator) modelName(model router.ModelType) string {
	if o.Cfg != nil {
		switch model {
		case router.ModelCohere:
			if o.Cfg.Cohere.Model != "" {
				return o.Cfg.Cohere.Model
			}
		default:
			if o.Cfg.Nova.Model != "" {
				return o.Cfg.Nova.Model
			}
		}
	}
	return string(model)
}

func buildCitations(docs []schema.SearchResult) []schema.Citation {
	out := make([]schema.Citation, 0, len(docs))
	for _, d := range docs {
		out = append(out, schema.Citation{
			Title:   d.Document.Title,
			URL:     d.Document.URL,
			Snippet: truncateRunes(d.Document.Content, maxSnippetRunes),
		})
	}
	return out
}

const maxSnippetRunes = 200

// truncateRunes cuts on a rune boundary so multi-byte content is never
// split mid-character.
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

func (r *Request) progress(stage Stage) {
	if r.Progress != nil {
		r.Progress(stage)
	}
}
