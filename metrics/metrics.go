// Package metrics exposes Prometheus instrumentation for the chat pipeline.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	stageLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chat_pipeline_stage_latency_ms",
		Help:    "Latency of pipeline stages in milliseconds",
		Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2000, 4000, 8000, 15000},
	}, []string{"stage"})

	routingDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_routing_total",
		Help: "Routing decisions by language and model",
	}, []string{"language", "model"})

	intentCategories = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_intent_total",
		Help: "Classified intent categories, including fail-open defaults",
	}, []string{"category", "fail_open"})

	cannedResponses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_canned_total",
		Help: "Canned responses served, bypassing retrieval",
	}, []string{"category"})

	cacheEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_cache_events_total",
		Help: "Response cache hits and misses",
	}, []string{"event"})

	faithfulnessScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "chat_faithfulness_score",
		Help:    "Faithfulness score distribution of generated answers",
		Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1.0},
	})

	fallbackSearches = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_fallback_search_total",
		Help: "Fallback web searches triggered by low faithfulness",
	})

	pipelineErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_pipeline_errors_total",
		Help: "Pipeline failures by stage",
	}, []string{"stage"})
)

func ensureRegistered() {
	once.Do(func() {
		prometheus.MustRegister(
			stageLatency, routingDecisions, intentCategories, cannedResponses,
			cacheEvents, faithfulnessScore, fallbackSearches, pipelineErrors,
		)
	})
}

// ObserveStage records how long a pipeline stage took.
func ObserveStage(stage string, start time.Time) {
	ensureRegistered()
	stageLatency.WithLabelValues(stage).Observe(float64(time.Since(start).Milliseconds()))
}

// IncRouting records a routing decision.
func IncRouting(language, model string) {
	ensureRegistered()
	routingDecisions.WithLabelValues(language, model).Inc()
}

// IncIntent records a classified category. failOpen marks results that came
// from the classifier's degraded default rather than the model.
func IncIntent(category string, failOpen bool) {
	ensureRegistered()
	fo := "false"
	if failOpen {
		fo = "true"
	}
	intentCategories.WithLabelValues(category, fo).Inc()
}

// IncCanned records a canned response dispatch.
func IncCanned(category string) {
	ensureRegistered()
	cannedResponses.WithLabelValues(category).Inc()
}

// IncCacheHit and IncCacheMiss record response-cache outcomes.
func IncCacheHit() {
	ensureRegistered()
	cacheEvents.WithLabelValues("hit").Inc()
}

func IncCacheMiss() {
	ensureRegistered()
	cacheEvents.WithLabelValues("miss").Inc()
}

// ObserveFaithfulness records a guard score.
func ObserveFaithfulness(score float64) {
	ensureRegistered()
	if score >= 0 && score <= 1 {
		faithfulnessScore.Observe(score)
	}
}

// IncFallbackSearch records a low-faithfulness fallback search.
func IncFallbackSearch() {
	ensureRegistered()
	fallbackSearches.Inc()
}

// IncPipelineError records a stage failure.
func IncPipelineError(stage string) {
	ensureRegistered()
	pipelineErrors.WithLabelValues(stage).Inc()
}

// Collectors exposes all collectors for registration with a custom registry.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		stageLatency, routingDecisions, intentCategories, cannedResponses,
		cacheEvents, faithfulnessScore, fallbackSearches, pipelineErrors,
	}
}
