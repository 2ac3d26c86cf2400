package catalog

import (
	"context"

	"github.com/kailas-cloud/shopsearch/internal/domain/product"
	"github.com/kailas-cloud/shopsearch/internal/repository/vectorindex"
)

// ProductStore persists catalog records.
type ProductStore interface {
	BulkInsert(ctx context.Context, products []product.Product) ([]string, error)
	Get(ctx context.Context, id string) (product.Product, error)
}

// PointWriter stores product embeddings.
type PointWriter interface {
	Upsert(ctx context.Context, p vectorindex.Point) error
}

// Embedder vectorizes a product. A zero vector means it failed.
type Embedder interface {
	EmbedProduct(ctx context.Context, text string, image []byte) []float32
}
