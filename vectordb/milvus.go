// Package vectordb provides direct vector-store access for self-hosted
// deployments that run their own index instead of the hosted retrieval
// service.
package vectordb

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/verdantiq/climatechat/config"
	"github.com/verdantiq/climatechat/schema"
)

// Store searches a vector collection of knowledge-base chunks.
type Store interface {
	SearchDocs(ctx context.Context, vector []float32, topK int) ([]schema.SearchResult, error)
	Close() error
}

// Expected collection fields: id (varchar, pk), title, content, url
// (varchar) and vector (float_vector).
type milvusStore struct {
	c          client.Client
	collection string
}

// NewMilvusStore connects to Milvus and returns a Store over one collection.
func NewMilvusStore(ctx context.Context, cfg config.MilvusConfig) (Store, error) {
	c, err := client.NewClient(ctx, client.Config{
		Address:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("connect milvus failed, err: %w", err)
	}
	return &milvusStore{c: c, collection: cfg.Collection}, nil
}

func (s *milvusStore) SearchDocs(ctx context.Context, vector []float32, topK int) ([]schema.SearchResult, error) {
	if topK <= 0 {
		topK = 10
	}
	sp, err := entity.NewIndexHNSWSearchParam(64)
	if err != nil {
		return nil, fmt.Errorf("build search param failed, err: %w", err)
	}
	results, err := s.c.Search(
		ctx,
		s.collection,
		nil,
		"",
		[]string{"id", "title", "content", "url"},
		[]entity.Vector{entity.FloatVector(vector)},
		"vector",
		entity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("milvus search failed, err: %w", err)
	}

	out := make([]schema.SearchResult, 0, topK)
	for _, res := range results {
		ids := varcharColumn(res.Fields.GetColumn("id"))
		titles := varcharColumn(res.Fields.GetColumn("title"))
		contents := varcharColumn(res.Fields.GetColumn("content"))
		urls := varcharColumn(res.Fields.GetColumn("url"))
		for i := 0; i < res.ResultCount; i++ {
			doc := schema.Document{
				ID:      valueAt(ids, i),
				Title:   valueAt(titles, i),
				Content: valueAt(contents, i),
				URL:     valueAt(urls, i),
			}
			out = append(out, schema.SearchResult{Document: doc, Score: float64(res.Scores[i])})
		}
	}
	return out, nil
}

func (s *milvusStore) Close() error {
	return s.c.Close()
}

func varcharColumn(col entity.Column) *entity.ColumnVarChar {
	vc, _ := col.(*entity.ColumnVarChar)
	return vc
}

func valueAt(col *entity.ColumnVarChar, i int) string {
	if col == nil || i >= col.Len() {
		return ""
	}
	v, err := col.ValueByIdx(i)
	if err != nil {
		return ""
	}
	return v
}
