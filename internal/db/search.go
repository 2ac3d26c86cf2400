package db

import "github.com/kailas-cloud/shopsearch/internal/domain/filter"

// ScoreField is the alias FT.SEARCH uses for KNN distances.
const ScoreField = "__vector_score"

// KNNQuery is the input for vector similarity search.
// Scores come back as cosine similarity in [0,1].
type KNNQuery struct {
	IndexName    string
	VectorField  string // defaults to "vector"
	Filters      filter.Expression
	Vector       []float32
	K            int
	ReturnFields []string
}

// TextQuery is the input for BM25 text search. Terms are OR-ed across Fields.
type TextQuery struct {
	IndexName    string
	Terms        []string
	Fields       []string
	Filters      filter.Expression
	TopK         int
	ReturnFields []string
}

// ListQuery is a filtered, paginated scan over an index.
type ListQuery struct {
	IndexName    string
	Filters      filter.Expression
	Offset       int
	Limit        int
	SortBy       string
	Descending   bool
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single hit.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
