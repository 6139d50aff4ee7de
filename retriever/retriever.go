// Package retriever defines the document search backends feeding generation.
package retriever

import (
	"context"

	"github.com/verdantiq/climatechat/schema"
)

// Retriever defines a unified search interface across different backends.
type Retriever interface {
	Type() string
	Search(ctx context.Context, query string, topK int) ([]schema.SearchResult, error)
}
