package config

import "fmt"

// Validate checks cross-field consistency before the service starts.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Nova.Model == "" {
		return fmt.Errorf("nova.model is required")
	}
	if c.Cohere.Model == "" {
		return fmt.Errorf("cohere.model is required")
	}
	switch c.Retrieval.Provider {
	case "http", "":
		// Endpoint may be filled per environment; the orchestrator treats a
		// missing retriever as a retrieval-stage failure at request time.
	case "milvus":
		if c.Retrieval.Milvus.Address == "" {
			return fmt.Errorf("retrieval.milvus.address is required for the milvus provider")
		}
		if c.Retrieval.Milvus.Collection == "" {
			return fmt.Errorf("retrieval.milvus.collection is required for the milvus provider")
		}
		if c.Embedding.Model == "" {
			return fmt.Errorf("embedding.model is required for the milvus provider")
		}
	default:
		return fmt.Errorf("unknown retrieval provider %q", c.Retrieval.Provider)
	}
	if c.Rerank.Enable {
		switch c.Rerank.Provider {
		case "cohere", "http", "":
		default:
			return fmt.Errorf("unknown rerank provider %q", c.Rerank.Provider)
		}
	}
	switch c.Guard.Provider {
	case "http":
		if c.Guard.Endpoint == "" {
			return fmt.Errorf("guard.endpoint is required for the http provider")
		}
	case "llm", "":
	default:
		return fmt.Errorf("unknown guard provider %q", c.Guard.Provider)
	}
	if c.Guard.Threshold < 0 || c.Guard.Threshold > 1 {
		return fmt.Errorf("guard.threshold must be in [0,1], got %v", c.Guard.Threshold)
	}
	switch c.Session.Provider {
	case "memory", "":
	case "redis":
		if c.Session.Redis == nil || c.Session.Redis.Addr == "" {
			return fmt.Errorf("session.redis.addr is required for the redis provider")
		}
	default:
		return fmt.Errorf("unknown session provider %q", c.Session.Provider)
	}
	if c.Cache.Redis != nil && c.Cache.Redis.Enable && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache.redis.addr is required when the redis cache is enabled")
	}
	if c.Classifier.TimeoutMs <= 0 {
		return fmt.Errorf("classifier.timeout_ms must be positive")
	}
	return nil
}
