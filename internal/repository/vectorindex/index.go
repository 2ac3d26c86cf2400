// Package vectorindex keeps one embedding point per product in Redis and
// answers owner- and category-scoped cosine KNN queries.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/rueidis"

	"github.com/kailas-cloud/shopsearch/internal/db"
	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/candidate"
	"github.com/kailas-cloud/shopsearch/internal/domain/category"
	"github.com/kailas-cloud/shopsearch/internal/domain/filter"
)

const (
	fieldProductID = "product_id"
	fieldOwner     = "owner"
	fieldCategory  = "category"
	fieldName      = "name"
	fieldPrice     = "price"
	fieldImageURL  = "image_url"
	fieldVector    = "vector"
)

var returnFields = []string{fieldProductID, fieldOwner, fieldCategory, fieldName, fieldPrice, fieldImageURL}

// store is the consumer interface for the vector index (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Point is one product embedding with its filterable payload.
type Point struct {
	ProductID string
	Vector    []float32
	Category  string
	Owner     string
	Name      string
	Price     float64
	ImageURL  string
}

// Search is a KNN request. Owner and Category are optional filters;
// Threshold drops hits with a lower cosine similarity.
type Search struct {
	Vector    []float32
	Owner     string
	Category  string
	TopK      int
	Threshold float64
}

// Options configure the HNSW index.
type Options struct {
	KeyPrefix   string
	Dimensions  int
	M           int
	EFConstruct int
}

// Index is the Redis-backed vector index.
type Index struct {
	store store
	opts  Options
}

// New creates a vector index repository.
func New(s store, opts Options) *Index {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = domain.KeyPrefix
	}
	return &Index{store: s, opts: opts}
}

// Name is the FT index name.
func (ix *Index) Name() string { return ix.opts.KeyPrefix + "points" }

// EnsureIndex creates the HNSW cosine index if missing.
func (ix *Index) EnsureIndex(ctx context.Context) error {
	def, err := db.NewIndex(ix.Name()).
		Prefix(ix.keyPrefix()).
		Tag(fieldProductID).
		Tag(fieldOwner).
		Tag(fieldCategory).
		Vector(fieldVector, db.VectorParams{
			Dim:         ix.opts.Dimensions,
			Distance:    db.DistanceCosine,
			M:           ix.opts.M,
			EFConstruct: ix.opts.EFConstruct,
		}).
		Build()
	if err != nil {
		return fmt.Errorf("build vector index: %w", err)
	}
	if err := ix.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("%w: create vector index: %w", domain.ErrIndexUnavailable, err)
	}
	return nil
}

// PointID derives the stable point identifier of a product, so that
// re-upserting a product overwrites its previous point.
func PointID(productID string) string {
	return uuid.NewMD5(uuid.NameSpaceURL, []byte(productID)).String()
}

// Upsert writes or replaces the point of p.ProductID.
func (ix *Index) Upsert(ctx context.Context, p Point) error {
	if p.ProductID == "" {
		return domain.InvalidInputf("point product ID is required")
	}
	if len(p.Vector) == 0 {
		return domain.InvalidInputf("point vector is required")
	}
	if ix.opts.Dimensions > 0 && len(p.Vector) != ix.opts.Dimensions {
		return domain.InvalidInputf("vector dimension %d, want %d", len(p.Vector), ix.opts.Dimensions)
	}

	fields := map[string]string{
		fieldProductID: p.ProductID,
		fieldOwner:     p.Owner,
		fieldCategory:  category.Normalize(p.Category),
		fieldName:      p.Name,
		fieldPrice:     strconv.FormatFloat(p.Price, 'f', -1, 64),
		fieldImageURL:  p.ImageURL,
		fieldVector:    rueidis.VectorString32(p.Vector),
	}
	if err := ix.store.HSet(ctx, ix.key(PointID(p.ProductID)), fields); err != nil {
		return fmt.Errorf("%w: upsert point %s: %w", domain.ErrIndexUnavailable, p.ProductID, err)
	}
	return nil
}

// Query returns hits ordered by similarity desc, ties by point ID,
// dropping anything under the threshold or outside the requested owner.
func (ix *Index) Query(ctx context.Context, s Search) ([]candidate.SearchCandidate, error) {
	if s.TopK <= 0 {
		return nil, nil
	}
	expr, err := buildFilter(s.Owner, s.Category)
	if err != nil {
		return nil, err
	}

	result, err := ix.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    ix.Name(),
		VectorField:  fieldVector,
		Filters:      expr,
		Vector:       s.Vector,
		K:            s.TopK,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: knn: %w", domain.ErrIndexUnavailable, err)
	}
	if result == nil {
		return nil, nil
	}

	out := make([]candidate.SearchCandidate, 0, len(result.Entries))
	for _, e := range result.Entries {
		c := candidate.SearchCandidate{
			ProductID:   e.Fields[fieldProductID],
			PointID:     strings.TrimPrefix(e.Key, ix.keyPrefix()),
			VectorScore: clamp01(e.Score),
			Category:    e.Fields[fieldCategory],
			Owner:       e.Fields[fieldOwner],
			Payload:     e.Fields,
		}
		if c.ProductID == "" {
			continue
		}
		if s.Owner != "" && c.Owner != s.Owner {
			continue
		}
		if c.VectorScore < s.Threshold {
			continue
		}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].VectorScore != out[j].VectorScore {
			return out[i].VectorScore > out[j].VectorScore
		}
		return out[i].PointID < out[j].PointID
	})
	if len(out) > s.TopK {
		out = out[:s.TopK]
	}
	return out, nil
}

func buildFilter(owner, cat string) (filter.Expression, error) {
	var must []filter.Condition
	if owner != "" {
		c, err := filter.Match(fieldOwner, owner)
		if err != nil {
			return filter.Expression{}, fmt.Errorf("owner filter: %w", err)
		}
		must = append(must, c)
	}
	should, err := filter.AnyOf(fieldCategory, category.Variants(cat)...)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("category filter: %w", err)
	}
	return filter.New(must, should, nil)
}

func (ix *Index) keyPrefix() string { return ix.opts.KeyPrefix + "point:" }

func (ix *Index) key(pointID string) string { return ix.keyPrefix() + pointID }

func clamp01(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}
