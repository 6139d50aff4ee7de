package climatechat

import (
	"context"
	"fmt"

	"github.com/verdantiq/climatechat/cache"
	"github.com/verdantiq/climatechat/canned"
	"github.com/verdantiq/climatechat/common/httpx"
	"github.com/verdantiq/climatechat/config"
	"github.com/verdantiq/climatechat/embedding"
	"github.com/verdantiq/climatechat/feedback"
	"github.com/verdantiq/climatechat/guard"
	"github.com/verdantiq/climatechat/intent"
	"github.com/verdantiq/climatechat/language"
	"github.com/verdantiq/climatechat/llm"
	"github.com/verdantiq/climatechat/orchestrator"
	"github.com/verdantiq/climatechat/rerank"
	"github.com/verdantiq/climatechat/retriever"
	"github.com/verdantiq/climatechat/router"
	"github.com/verdantiq/climatechat/translate"
	"github.com/verdantiq/climatechat/vectordb"
)

// Client assembles every pipeline component from config and owns their
// lifecycles.
type Client struct {
	Cfg          *config.Config
	Table        *language.Table
	Orchestrator *orchestrator.Orchestrator
	Sessions     SessionStore
	Feedback     feedback.Store

	cache *cache.ResponseCache
	store vectordb.Store
}

// NewClient builds the full pipeline. It fails fast on invalid config and on
// unreachable required backends (Redis, Milvus); hosted HTTP services are
// only contacted per request.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	table := language.NewDefaultTable()
	if cfg.Languages.TablePath != "" {
		loaded, err := language.LoadTable(cfg.Languages.TablePath)
		if err != nil {
			return nil, fmt.Errorf("load language table failed, err: %w", err)
		}
		table = loaded
	}

	nova, err := llm.NewProvider(cfg.Nova)
	if err != nil {
		return nil, fmt.Errorf("init nova provider failed, err: %w", err)
	}
	cohere, err := llm.NewProvider(cfg.Cohere)
	if err != nil {
		return nil, fmt.Errorf("init cohere provider failed, err: %w", err)
	}

	var routerOpts []router.Option
	if cfg.Languages.Strict {
		routerOpts = append(routerOpts, router.WithStrict())
	}

	c := &Client{Cfg: cfg, Table: table}
	httpClient := httpx.NewFromConfig(cfg.HTTP)

	var ret retriever.Retriever
	switch cfg.Retrieval.Provider {
	case "milvus":
		embed, err := embedding.NewProvider(cfg.Embedding)
		if err != nil {
			return nil, fmt.Errorf("init embedding provider failed, err: %w", err)
		}
		store, err := vectordb.NewMilvusStore(ctx, cfg.Retrieval.Milvus)
		if err != nil {
			return nil, err
		}
		c.store = store
		ret = &retriever.VectorRetriever{Embed: embed, Store: store, Threshold: cfg.Retrieval.Threshold}
	default:
		ret = &retriever.HTTPRetriever{
			Endpoint:  cfg.Retrieval.Endpoint,
			APIKey:    cfg.Retrieval.APIKey,
			Threshold: cfg.Retrieval.Threshold,
			Client:    httpClient,
		}
	}

	var fallback retriever.Retriever
	if cfg.Fallback.Enable {
		fallback = &retriever.WebSearchRetriever{
			Provider: cfg.Fallback.Provider,
			Endpoint: cfg.Fallback.Endpoint,
			APIKey:   cfg.Fallback.APIKey,
			Client:   httpClient,
		}
	}

	ev, err := guard.NewEvaluator(cfg.Guard, nova)
	if err != nil {
		return nil, fmt.Errorf("init guard failed, err: %w", err)
	}

	rc, err := cache.NewResponseCache(ctx, cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("init response cache failed, err: %w", err)
	}
	c.cache = rc

	switch cfg.Session.Provider {
	case "redis":
		c.Sessions, err = NewRedisSessionStore(ctx, cfg.Session)
		if err != nil {
			return nil, fmt.Errorf("init session store failed, err: %w", err)
		}
	default:
		c.Sessions = NewMemSessionStore()
	}

	c.Feedback, err = feedback.NewStore(ctx, cfg.Feedback)
	if err != nil {
		return nil, fmt.Errorf("init feedback store failed, err: %w", err)
	}

	svc := translate.NewService(table, nova, cohere)
	c.Orchestrator = &orchestrator.Orchestrator{
		Cfg:        cfg,
		Router:     router.New(table, routerOpts...),
		Classifier: intent.NewLLMClassifier(nova, cfg.Classifier),
		Canned:     canned.NewDispatcher(svc),
		Translate:  svc,
		Retriever:  ret,
		Fallback:   fallback,
		Reranker:   rerank.NewReranker(cfg.Rerank),
		Guard:      ev,
		Nova:       nova,
		Cohere:     cohere,
		Cache:      rc,
	}
	return c, nil
}

// Close releases backend connections.
func (c *Client) Close() error {
	var first error
	if c.cache != nil {
		if err := c.cache.Close(); err != nil {
			first = err
		}
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
