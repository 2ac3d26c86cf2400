package retrieval

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/shopsearch/internal/domain/candidate"
	"github.com/kailas-cloud/shopsearch/internal/domain/product"
	"github.com/kailas-cloud/shopsearch/internal/repository/vectorindex"
	"github.com/kailas-cloud/shopsearch/internal/usecase/embedding"
)

// --- Mocks ---

type mockCatalog struct {
	getManyFn    func(ctx context.Context, ids []string) (map[string]product.Product, error)
	searchTextFn func(ctx context.Context, owner, text string, limit int) ([]product.Product, error)
	findFn       func(ctx context.Context, owner, cat string, limit int) ([]product.Product, error)
}

func (m *mockCatalog) GetMany(ctx context.Context, ids []string) (map[string]product.Product, error) {
	if m.getManyFn != nil {
		return m.getManyFn(ctx, ids)
	}
	return map[string]product.Product{}, nil
}

func (m *mockCatalog) SearchText(ctx context.Context, owner, text string, limit int) ([]product.Product, error) {
	if m.searchTextFn != nil {
		return m.searchTextFn(ctx, owner, text, limit)
	}
	return nil, nil
}

func (m *mockCatalog) FindByOwnerAndCategory(
	ctx context.Context, owner, cat string, limit int,
) ([]product.Product, error) {
	if m.findFn != nil {
		return m.findFn(ctx, owner, cat, limit)
	}
	return nil, nil
}

// catalogOf serves GetMany from a fixed product set.
func catalogOf(products ...product.Product) *mockCatalog {
	byID := make(map[string]product.Product, len(products))
	for _, p := range products {
		byID[p.ID()] = p
	}
	return &mockCatalog{
		getManyFn: func(_ context.Context, ids []string) (map[string]product.Product, error) {
			out := make(map[string]product.Product)
			for _, id := range ids {
				if p, ok := byID[id]; ok {
					out[id] = p
				}
			}
			return out, nil
		},
	}
}

type mockIndex struct {
	mu       sync.Mutex
	searches []vectorindex.Search
	queryFn  func(ctx context.Context, s vectorindex.Search) ([]candidate.SearchCandidate, error)
}

func (m *mockIndex) Query(ctx context.Context, s vectorindex.Search) ([]candidate.SearchCandidate, error) {
	m.mu.Lock()
	m.searches = append(m.searches, s)
	m.mu.Unlock()
	if m.queryFn != nil {
		return m.queryFn(ctx, s)
	}
	return nil, nil
}

type mockEmbedder struct {
	vec    []float32
	flavor embedding.Flavor
	calls  int
}

func (m *mockEmbedder) EmbedQuery(_ context.Context, _ string, _ []byte, flavor embedding.Flavor) []float32 {
	m.calls++
	m.flavor = flavor
	return m.vec
}

func unitEmbedder() *mockEmbedder {
	return &mockEmbedder{vec: []float32{1, 0, 0}}
}

// --- Fixtures ---

func mkProduct(id, owner, name, desc, cat string, price float64) product.Product {
	return product.Reconstruct(id, owner, product.Attrs{
		Name:        name,
		Description: desc,
		Price:       price,
		Category:    cat,
		InStock:     true,
	}, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
}

func hit(id, owner, cat string, score float64) candidate.SearchCandidate {
	return candidate.SearchCandidate{
		ProductID:   id,
		PointID:     vectorindex.PointID(id),
		VectorScore: score,
		Category:    cat,
		Owner:       owner,
	}
}

func scored(id string, relevance float64) candidate.ScoredProduct {
	return candidate.ScoredProduct{
		Product:   mkProduct(id, "owner-a", id, "", "", 0),
		Relevance: relevance,
		Source:    candidate.SourceVector,
	}
}
