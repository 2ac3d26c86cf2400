package catalog

import (
	"context"
	"sync"

	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/product"
	"github.com/kailas-cloud/shopsearch/internal/repository/vectorindex"
)

// --- Mocks ---

type mockProducts struct {
	inserted  []product.Product
	insertErr error
	getFn     func(ctx context.Context, id string) (product.Product, error)
}

func (m *mockProducts) BulkInsert(_ context.Context, products []product.Product) ([]string, error) {
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	m.inserted = append(m.inserted, products...)
	ids := make([]string, len(products))
	for i := range products {
		ids[i] = products[i].ID()
	}
	return ids, nil
}

func (m *mockProducts) Get(ctx context.Context, id string) (product.Product, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return product.Product{}, domain.ErrNotFound
}

type mockPoints struct {
	mu     sync.Mutex
	points []vectorindex.Point
	err    error
}

func (m *mockPoints) Upsert(_ context.Context, p vectorindex.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.points = append(m.points, p)
	return nil
}

// mockEmbedder returns a zero vector for texts starting with "broken".
type mockEmbedder struct {
	mu    sync.Mutex
	texts []string
}

func (m *mockEmbedder) EmbedProduct(_ context.Context, text string, _ []byte) []float32 {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()
	if len(text) >= 6 && text[:6] == "broken" {
		return []float32{0, 0}
	}
	return []float32{0.6, 0.8}
}
