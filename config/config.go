// Package config defines the service configuration tree and its validation.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the chat backend.
type Config struct {
	Server     ServerConfig     `json:"server" yaml:"server"`
	Languages  LanguagesConfig  `json:"languages" yaml:"languages"`
	Nova       LLMConfig        `json:"nova" yaml:"nova"`
	Cohere     LLMConfig        `json:"cohere" yaml:"cohere"`
	Classifier ClassifierConfig `json:"classifier" yaml:"classifier"`
	Embedding  EmbeddingConfig  `json:"embedding" yaml:"embedding"`
	Retrieval  RetrievalConfig  `json:"retrieval" yaml:"retrieval"`
	Rerank     RerankConfig     `json:"rerank" yaml:"rerank"`
	Guard      GuardConfig      `json:"guard" yaml:"guard"`
	Fallback   FallbackConfig   `json:"fallback_search" yaml:"fallback_search"`
	Cache      CacheConfig      `json:"cache" yaml:"cache"`
	Session    SessionConfig    `json:"session" yaml:"session"`
	Feedback   FeedbackConfig   `json:"feedback" yaml:"feedback"`
	HTTP       *HTTPClientConfig `json:"http,omitempty" yaml:"http,omitempty"`
	LogLevel   string           `json:"log_level,omitempty" yaml:"log_level,omitempty"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr             string  `json:"addr,omitempty" yaml:"addr,omitempty"`
	RequestTimeoutMs int     `json:"request_timeout_ms,omitempty" yaml:"request_timeout_ms,omitempty"`
	MaxBodyBytes     int64   `json:"max_body_bytes,omitempty" yaml:"max_body_bytes,omitempty"`
	RateLimitPerSec  float64 `json:"rate_limit_per_sec,omitempty" yaml:"rate_limit_per_sec,omitempty"`
	RateLimitBurst   int     `json:"rate_limit_burst,omitempty" yaml:"rate_limit_burst,omitempty"`
}

// LanguagesConfig points at an optional external language table.
type LanguagesConfig struct {
	// TablePath overrides the compiled-in language table when set.
	TablePath string `json:"table_path,omitempty" yaml:"table_path,omitempty"`
	// Strict makes unknown language codes an error instead of degrading
	// to English routing.
	Strict bool `json:"strict,omitempty" yaml:"strict,omitempty"`
}

// LLMConfig configures one hosted chat model.
type LLMConfig struct {
	Provider    string  `json:"provider" yaml:"provider"` // nova, cohere, openai
	APIKey      string  `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL     string  `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model       string  `json:"model" yaml:"model"`
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	TimeoutMs   int     `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
}

// ClassifierConfig bounds the intent classification call.
type ClassifierConfig struct {
	TimeoutMs int `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
	// HistoryTurns caps how many prior turns are shown to the classifier.
	HistoryTurns int `json:"history_turns,omitempty" yaml:"history_turns,omitempty"`
	// HistoryTokenBudget caps total history tokens after turn truncation.
	HistoryTokenBudget int `json:"history_token_budget,omitempty" yaml:"history_token_budget,omitempty"`
}

// EmbeddingConfig configures the embedding model used by the self-hosted
// vector retriever.
type EmbeddingConfig struct {
	APIKey     string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL    string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model      string `json:"model,omitempty" yaml:"model,omitempty"`
	Dimensions int    `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
}

// RetrievalConfig selects the document retriever.
type RetrievalConfig struct {
	// Provider: http (hosted retrieval service) or milvus (self-hosted).
	Provider  string  `json:"provider" yaml:"provider"`
	Endpoint  string  `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	APIKey    string  `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	TopK      int     `json:"top_k,omitempty" yaml:"top_k,omitempty"`
	Threshold float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	TimeoutMs int     `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
	Milvus    MilvusConfig `json:"milvus,omitempty" yaml:"milvus,omitempty"`
}

// MilvusConfig configures the Milvus vector store.
type MilvusConfig struct {
	Address    string `json:"address,omitempty" yaml:"address,omitempty"`
	Username   string `json:"username,omitempty" yaml:"username,omitempty"`
	Password   string `json:"password,omitempty" yaml:"password,omitempty"`
	Collection string `json:"collection,omitempty" yaml:"collection,omitempty"`
}

// RerankConfig configures the reranking stage.
type RerankConfig struct {
	Enable    bool   `json:"enable" yaml:"enable"`
	Provider  string `json:"provider,omitempty" yaml:"provider,omitempty"` // cohere, http
	Endpoint  string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	APIKey    string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Model     string `json:"model,omitempty" yaml:"model,omitempty"`
	TopN      int    `json:"top_n,omitempty" yaml:"top_n,omitempty"`
	TimeoutMs int    `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
}

// GuardConfig configures faithfulness scoring.
type GuardConfig struct {
	Provider  string  `json:"provider,omitempty" yaml:"provider,omitempty"` // http, llm
	Endpoint  string  `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Threshold float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	TimeoutMs int     `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
}

// FallbackConfig configures the secondary search provider used when
// faithfulness falls below threshold.
type FallbackConfig struct {
	Enable    bool   `json:"enable" yaml:"enable"`
	Provider  string `json:"provider,omitempty" yaml:"provider,omitempty"` // tavily, duckduckgo
	Endpoint  string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	APIKey    string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	MaxResults int   `json:"max_results,omitempty" yaml:"max_results,omitempty"`
	TimeoutMs int    `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	L1    *L1CacheConfig    `json:"l1,omitempty" yaml:"l1,omitempty"`
	Redis *RedisCacheConfig `json:"redis,omitempty" yaml:"redis,omitempty"`
}

// L1CacheConfig is the in-process LRU in front of Redis.
type L1CacheConfig struct {
	Enable     bool `json:"enable" yaml:"enable"`
	MaxEntries int  `json:"max_entries,omitempty" yaml:"max_entries,omitempty"`
	TTLSeconds int  `json:"ttl_seconds,omitempty" yaml:"ttl_seconds,omitempty"`
}

// RedisCacheConfig configures the shared Redis response cache.
type RedisCacheConfig struct {
	Enable     bool   `json:"enable" yaml:"enable"`
	Addr       string `json:"addr,omitempty" yaml:"addr,omitempty"`
	Password   string `json:"password,omitempty" yaml:"password,omitempty"`
	DB         int    `json:"db,omitempty" yaml:"db,omitempty"`
	TTLSeconds int    `json:"ttl_seconds,omitempty" yaml:"ttl_seconds,omitempty"`
	KeyPrefix  string `json:"key_prefix,omitempty" yaml:"key_prefix,omitempty"`
}

// SessionConfig configures conversation history persistence.
type SessionConfig struct {
	Provider   string            `json:"provider,omitempty" yaml:"provider,omitempty"` // memory, redis
	TTLSeconds int               `json:"ttl_seconds,omitempty" yaml:"ttl_seconds,omitempty"`
	MaxCount   int               `json:"max_count,omitempty" yaml:"max_count,omitempty"`
	Redis      *RedisCacheConfig `json:"redis,omitempty" yaml:"redis,omitempty"`
}

// FeedbackConfig configures user feedback persistence.
type FeedbackConfig struct {
	Provider string            `json:"provider,omitempty" yaml:"provider,omitempty"` // memory, redis
	Redis    *RedisCacheConfig `json:"redis,omitempty" yaml:"redis,omitempty"`
}

// HTTPClientConfig tunes the shared outbound HTTP client.
type HTTPClientConfig struct {
	TimeoutMs              int      `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
	Retry                  int      `json:"retry,omitempty" yaml:"retry,omitempty"`
	BackoffMinMs           int      `json:"backoff_min_ms,omitempty" yaml:"backoff_min_ms,omitempty"`
	BackoffMaxMs           int      `json:"backoff_max_ms,omitempty" yaml:"backoff_max_ms,omitempty"`
	HostAllowlist          []string `json:"host_allowlist,omitempty" yaml:"host_allowlist,omitempty"`
	MaxConsecutiveFailures int      `json:"max_consecutive_failures,omitempty" yaml:"max_consecutive_failures,omitempty"`
	CircuitOpenSeconds     int      `json:"circuit_open_seconds,omitempty" yaml:"circuit_open_seconds,omitempty"`
}

// Default returns the config used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:             ":8080",
			RequestTimeoutMs: 60000,
			MaxBodyBytes:     1 << 20,
			RateLimitPerSec:  10,
			RateLimitBurst:   20,
		},
		Nova: LLMConfig{
			Provider:    "nova",
			Model:       "nova-pro",
			Temperature: 0.3,
			MaxTokens:   1024,
		},
		Cohere: LLMConfig{
			Provider:    "cohere",
			Model:       "command-a-03-2025",
			Temperature: 0.3,
			MaxTokens:   1024,
		},
		Classifier: ClassifierConfig{
			TimeoutMs:          4000,
			HistoryTurns:       6,
			HistoryTokenBudget: 1500,
		},
		Retrieval: RetrievalConfig{
			Provider:  "http",
			TopK:      10,
			Threshold: 0.35,
			TimeoutMs: 5000,
		},
		Rerank: RerankConfig{
			Enable:    true,
			Provider:  "cohere",
			Model:     "rerank-v3.5",
			TopN:      5,
			TimeoutMs: 3000,
		},
		Guard: GuardConfig{
			Provider:  "llm",
			Threshold: 0.7,
			TimeoutMs: 5000,
		},
		Fallback: FallbackConfig{
			Enable:     true,
			Provider:   "duckduckgo",
			MaxResults: 3,
			TimeoutMs:  5000,
		},
		Cache: CacheConfig{
			L1: &L1CacheConfig{Enable: true, MaxEntries: 500, TTLSeconds: 120},
		},
		Session: SessionConfig{
			Provider:   "memory",
			TTLSeconds: 86400,
			MaxCount:   1000,
		},
		Feedback: FeedbackConfig{Provider: "memory"},
		LogLevel: "info",
	}
}

// Load reads a YAML config file over the defaults and applies env overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config failed, err: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config failed, err: %w", err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides pulls secrets from the environment so keys never have to
// live in the config file. CLIMATECHAT_NOVA_API_KEY etc.
func applyEnvOverrides(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix("climatechat")
	v.AutomaticEnv()

	if s := v.GetString("nova_api_key"); s != "" {
		cfg.Nova.APIKey = s
	}
	if s := v.GetString("cohere_api_key"); s != "" {
		cfg.Cohere.APIKey = s
		if cfg.Rerank.APIKey == "" {
			cfg.Rerank.APIKey = s
		}
	}
	if s := v.GetString("embedding_api_key"); s != "" {
		cfg.Embedding.APIKey = s
	}
	if s := v.GetString("retrieval_api_key"); s != "" {
		cfg.Retrieval.APIKey = s
	}
	if s := v.GetString("fallback_api_key"); s != "" {
		cfg.Fallback.APIKey = s
	}
	if s := v.GetString("redis_password"); s != "" {
		if cfg.Cache.Redis != nil {
			cfg.Cache.Redis.Password = s
		}
		if cfg.Session.Redis != nil {
			cfg.Session.Redis.Password = s
		}
	}
	if s := v.GetString("addr"); s != "" {
		cfg.Server.Addr = s
	}
	if s := v.GetString("log_level"); s != "" {
		cfg.LogLevel = s
	}
}
