// Package catalog ingests product uploads: validation, embedding on a
// worker pool, vector upsert and a single bulk catalog write.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/batch"
	"github.com/kailas-cloud/shopsearch/internal/domain/product"
	"github.com/kailas-cloud/shopsearch/internal/domain/vector"
	"github.com/kailas-cloud/shopsearch/internal/metrics"
	"github.com/kailas-cloud/shopsearch/internal/repository/vectorindex"
)

// Defaults when Options leave a field zero.
const (
	DefaultWorkers      = 4
	DefaultMaxBatchSize = 500
)

// Item is one uploaded product. Image, when set, is embedded alongside
// the text.
type Item struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"image_url"`
	InStock     *bool   `json:"in_stock,omitempty"`
	Image       []byte  `json:"-"`
}

// Report is the outcome of an upload, one result per item in order.
type Report struct {
	Results  []batch.Result
	Inserted int
	Failed   int
}

// Options tune ingestion.
type Options struct {
	Workers      int
	MaxBatchSize int
}

// Service ingests and reads products.
type Service struct {
	products ProductStore
	points   PointWriter
	embed    Embedder
	pool     *ants.Pool
	maxBatch int
	newID    func() string
	now      func() time.Time
	logger   *zap.Logger
}

// New creates an ingestion service with its embedding pool. Call Release
// when done.
func New(products ProductStore, points PointWriter, embed Embedder, opts Options, logger *zap.Logger) (*Service, error) {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.MaxBatchSize <= 0 {
		opts.MaxBatchSize = DefaultMaxBatchSize
	}
	pool, err := ants.NewPool(opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("create ingest pool: %w", err)
	}
	return &Service{
		products: products,
		points:   points,
		embed:    embed,
		pool:     pool,
		maxBatch: opts.MaxBatchSize,
		newID:    uuid.NewString,
		now:      time.Now,
		logger:   logger,
	}, nil
}

// Release stops the worker pool.
func (s *Service) Release() {
	s.pool.Release()
}

// Get returns a product by ID.
func (s *Service) Get(ctx context.Context, id string) (product.Product, error) {
	if strings.TrimSpace(id) == "" {
		return product.Product{}, domain.InvalidInputf("product ID is required")
	}
	p, err := s.products.Get(ctx, id)
	if err != nil {
		return product.Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// Ingest validates, embeds and stores items for owner. Item failures are
// reported per item; the error return is for request-level problems.
func (s *Service) Ingest(ctx context.Context, owner string, items []Item) (Report, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return Report{}, domain.InvalidInputf("owner_id is required")
	}
	if len(items) == 0 {
		return Report{}, domain.InvalidInputf("no products to upload")
	}
	if len(items) > s.maxBatch {
		return Report{}, domain.InvalidInputf("batch size %d exceeds %d", len(items), s.maxBatch)
	}

	results := make([]batch.Result, len(items))
	products := make([]product.Product, len(items))
	ready := make([]bool, len(items))
	now := s.now()

	var wg sync.WaitGroup
	for i := range items {
		p, err := product.New(s.newID(), owner, items[i].attrs(), now)
		if err != nil {
			results[i] = batch.NewError(i, "", items[i].Name, domain.InvalidInputf("%v", err))
			continue
		}
		products[i] = p

		wg.Add(1)
		if err := s.pool.Submit(func() {
			defer wg.Done()
			if err := s.index(ctx, &products[i], items[i].Image); err != nil {
				results[i] = batch.NewError(i, products[i].ID(), products[i].Name(), err)
				return
			}
			ready[i] = true
		}); err != nil {
			wg.Done()
			results[i] = batch.NewError(i, p.ID(), p.Name(), fmt.Errorf("schedule embedding: %w", err))
		}
	}
	wg.Wait()

	var batchItems []product.Product
	var batchIdx []int
	for i, ok := range ready {
		if ok {
			batchItems = append(batchItems, products[i])
			batchIdx = append(batchIdx, i)
		}
	}

	if len(batchItems) > 0 {
		if _, err := s.products.BulkInsert(ctx, batchItems); err != nil {
			s.logger.Error("Bulk catalog insert failed", zap.Int("items", len(batchItems)), zap.Error(err))
			for _, i := range batchIdx {
				results[i] = batch.NewError(i, products[i].ID(), products[i].Name(), fmt.Errorf("insert: %w", err))
			}
		} else {
			for _, i := range batchIdx {
				results[i] = batch.NewOK(i, products[i].ID(), products[i].Name())
			}
		}
	}

	ok, failed := batch.Counts(results)
	metrics.IngestItemsTotal.WithLabelValues("ok").Add(float64(ok))
	metrics.IngestItemsTotal.WithLabelValues("failed").Add(float64(failed))
	s.logger.Info("Products ingested",
		zap.String("owner", owner),
		zap.Int("inserted", ok),
		zap.Int("failed", failed),
	)
	return Report{Results: results, Inserted: ok, Failed: failed}, nil
}

// index embeds p and writes its vector point.
func (s *Service) index(ctx context.Context, p *product.Product, image []byte) error {
	vec := s.embed.EmbedProduct(ctx, p.EmbeddingText(), image)
	if vector.IsZero(vec) {
		return fmt.Errorf("embed product: %w", domain.ErrEmbeddingFailure)
	}
	err := s.points.Upsert(ctx, vectorindex.Point{
		ProductID: p.ID(),
		Vector:    vec,
		Category:  p.Category(),
		Owner:     p.OwnerID(),
		Name:      p.Name(),
		Price:     p.Price(),
		ImageURL:  p.ImageURL(),
	})
	if err != nil {
		return fmt.Errorf("upsert point: %w", err)
	}
	return nil
}

func (it *Item) attrs() product.Attrs {
	inStock := true
	if it.InStock != nil {
		inStock = *it.InStock
	}
	return product.Attrs{
		Name:        it.Name,
		Description: it.Description,
		Price:       it.Price,
		Category:    it.Category,
		ImageURL:    it.ImageURL,
		InStock:     inStock,
	}
}
