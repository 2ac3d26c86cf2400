// Package catalog stores products as Redis hashes behind an FT index
// that serves owner/category scans and BM25 text search.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/kailas-cloud/shopsearch/internal/db"
	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/category"
	"github.com/kailas-cloud/shopsearch/internal/domain/filter"
	"github.com/kailas-cloud/shopsearch/internal/domain/product"
)

// store is the consumer interface for the catalog (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
}

// Repo is the read-mostly product catalog.
type Repo struct {
	store  store
	prefix string
}

// New creates a catalog repository. prefix namespaces keys and the index.
func New(s store, prefix string) *Repo {
	if prefix == "" {
		prefix = domain.KeyPrefix
	}
	return &Repo{store: s, prefix: prefix}
}

// IndexName is the FT index over product hashes.
func (r *Repo) IndexName() string { return r.prefix + "products" }

// EnsureIndex creates the product index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	def, err := db.NewIndex(r.IndexName()).
		Prefix(r.keyPrefix()).
		Tag(fieldOwner).
		Tag(fieldCategoryTag).
		Text(fieldName, 2).
		Text(fieldDescription, 1).
		Numeric(fieldPrice).Sortable().
		Numeric(fieldCreatedAt).Sortable().
		Build()
	if err != nil {
		return fmt.Errorf("build product index: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create product index: %w", err)
	}
	return nil
}

// Get returns a product by ID.
func (r *Repo) Get(ctx context.Context, id string) (product.Product, error) {
	m, err := r.store.HGetAll(ctx, r.key(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return product.Product{}, domain.ErrNotFound
		}
		return product.Product{}, fmt.Errorf("hgetall product %s: %w", id, err)
	}
	if len(m) == 0 {
		return product.Product{}, domain.ErrNotFound
	}
	p, err := parseHashFields(id, m)
	if err != nil {
		return product.Product{}, fmt.Errorf("product %s: %w", id, err)
	}
	return p, nil
}

// GetMany hydrates products in one round-trip. Missing and malformed
// records are left out of the map; callers decide how to report them.
func (r *Repo) GetMany(ctx context.Context, ids []string) (map[string]product.Product, error) {
	if len(ids) == 0 {
		return map[string]product.Product{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(id)
	}

	rows, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall products: %w", err)
	}

	out := make(map[string]product.Product, len(ids))
	for i, m := range rows {
		if i >= len(ids) || len(m) == 0 {
			continue
		}
		p, err := parseHashFields(ids[i], m)
		if err != nil {
			continue
		}
		out[ids[i]] = p
	}
	return out, nil
}

// FindByOwnerAndCategory lists an owner's products, newest first.
// An empty category lists across all categories.
func (r *Repo) FindByOwnerAndCategory(
	ctx context.Context, owner, cat string, limit int,
) ([]product.Product, error) {
	expr, err := r.ownerFilter(owner, cat)
	if err != nil {
		return nil, err
	}

	result, err := r.store.SearchList(ctx, &db.ListQuery{
		IndexName:  r.IndexName(),
		Filters:    expr,
		Limit:      limit,
		SortBy:     fieldCreatedAt,
		Descending: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return r.parseEntries(result), nil
}

// SearchText runs an owner-scoped BM25 search of text over name and
// description, best match first.
func (r *Repo) SearchText(ctx context.Context, owner, text string, limit int) ([]product.Product, error) {
	terms := Terms(text)
	if len(terms) == 0 {
		return nil, nil
	}
	expr, err := r.ownerFilter(owner, "")
	if err != nil {
		return nil, err
	}

	result, err := r.store.SearchBM25(ctx, &db.TextQuery{
		IndexName: r.IndexName(),
		Terms:     terms,
		Fields:    []string{fieldName, fieldDescription},
		Filters:   expr,
		TopK:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}
	return r.parseEntries(result), nil
}

// BulkInsert writes products in one pipeline and returns their IDs in order.
func (r *Repo) BulkInsert(ctx context.Context, products []product.Product) ([]string, error) {
	if len(products) == 0 {
		return nil, nil
	}
	items := make([]db.HashSetItem, len(products))
	ids := make([]string, len(products))
	for i := range products {
		p := &products[i]
		items[i] = db.HashSetItem{Key: r.key(p.ID()), Fields: buildHashFields(p)}
		ids[i] = p.ID()
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return nil, fmt.Errorf("insert %d products: %w", len(products), err)
	}
	return ids, nil
}

func (r *Repo) ownerFilter(owner, cat string) (filter.Expression, error) {
	if owner == "" {
		return filter.Expression{}, domain.InvalidInputf("owner scope is required")
	}
	must, err := filter.Match(fieldOwner, owner)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("owner filter: %w", err)
	}
	should, err := filter.AnyOf(fieldCategoryTag, category.Variants(cat)...)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("category filter: %w", err)
	}
	return filter.New([]filter.Condition{must}, should, nil)
}

// parseEntries skips malformed rows; the index may briefly lag deletes.
func (r *Repo) parseEntries(result *db.SearchResult) []product.Product {
	if result == nil {
		return nil
	}
	out := make([]product.Product, 0, len(result.Entries))
	for _, e := range result.Entries {
		id := strings.TrimPrefix(e.Key, r.keyPrefix())
		p, err := parseHashFields(id, e.Fields)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (r *Repo) keyPrefix() string { return r.prefix + "product:" }

func (r *Repo) key(id string) string { return r.keyPrefix() + id }

// Terms lowercases text and splits it into BM25 terms of two or more runes.
func Terms(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsDigit(c)
	})
	out := make([]string, 0, len(words))
	seen := make(map[string]bool, len(words))
	for _, w := range words {
		if len([]rune(w)) < 2 || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}
