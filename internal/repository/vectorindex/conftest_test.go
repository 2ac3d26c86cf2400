package vectorindex

import (
	"context"
	"slices"
	"sort"
	"strings"
	"testing"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/shopsearch/internal/db"
	"github.com/kailas-cloud/shopsearch/internal/domain/filter"
	"github.com/kailas-cloud/shopsearch/internal/domain/vector"
)

// memStore is an in-memory stand-in for the Redis hash + KNN surface.
// It evaluates tag filters and cosine similarity the way FT.SEARCH does.
type memStore struct {
	hashes   map[string]map[string]string
	knnFn    func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	hsetErr  error
	lastKNN  *db.KNNQuery
	indexDef *db.IndexDefinition
}

func newMemStore() *memStore {
	return &memStore{hashes: map[string]map[string]string{}}
}

func (m *memStore) HSet(_ context.Context, key string, fields map[string]string) error {
	if m.hsetErr != nil {
		return m.hsetErr
	}
	m.hashes[key] = fields
	return nil
}

func (m *memStore) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	m.indexDef = def
	return nil
}

func (m *memStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	m.lastKNN = q
	if m.knnFn != nil {
		return m.knnFn(ctx, q)
	}
	var entries []db.SearchEntry
	for key, f := range m.hashes {
		if !matches(q.Filters, f) {
			continue
		}
		fields := make(map[string]string, len(q.ReturnFields))
		for _, name := range q.ReturnFields {
			fields[name] = f[name]
		}
		score := vector.Cosine(q.Vector, rueidis.ToVector32(f[fieldVector]))
		entries = append(entries, db.SearchEntry{Key: key, Score: score, Fields: fields})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Score > entries[j].Score })
	if len(entries) > q.K {
		entries = entries[:q.K]
	}
	return &db.SearchResult{Total: len(entries), Entries: entries}, nil
}

func matches(expr filter.Expression, f map[string]string) bool {
	for _, c := range expr.Must() {
		if !strings.EqualFold(f[c.Key()], c.Value()) {
			return false
		}
	}
	if len(expr.Should()) == 0 {
		return true
	}
	return slices.ContainsFunc(expr.Should(), func(c filter.Condition) bool {
		return strings.EqualFold(f[c.Key()], c.Value())
	})
}

func newTestIndex(t *testing.T, dim int) (*Index, *memStore) {
	t.Helper()
	ms := newMemStore()
	return New(ms, Options{KeyPrefix: "shopsearch:", Dimensions: dim, M: 16, EFConstruct: 200}), ms
}
