package retrieval

import (
	"context"

	"github.com/kailas-cloud/shopsearch/internal/domain/candidate"
	"github.com/kailas-cloud/shopsearch/internal/domain/product"
	"github.com/kailas-cloud/shopsearch/internal/repository/vectorindex"
	"github.com/kailas-cloud/shopsearch/internal/usecase/embedding"
)

// Catalog hydrates candidates and serves the keyword path.
type Catalog interface {
	GetMany(ctx context.Context, ids []string) (map[string]product.Product, error)
	SearchText(ctx context.Context, owner, text string, limit int) ([]product.Product, error)
	FindByOwnerAndCategory(ctx context.Context, owner, cat string, limit int) ([]product.Product, error)
}

// VectorIndex answers KNN queries.
type VectorIndex interface {
	Query(ctx context.Context, s vectorindex.Search) ([]candidate.SearchCandidate, error)
}

// Embedder produces the combined query vector. It never fails; a zero
// vector means every modality degraded.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string, image []byte, flavor embedding.Flavor) []float32
}
