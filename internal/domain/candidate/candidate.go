// Package candidate holds the typed records passed between the vector
// index, the relevance scorer and the retrieval orchestrator.
package candidate

import "github.com/kailas-cloud/shopsearch/internal/domain/product"

// Source tells which retrieval path produced a result.
type Source string

const (
	SourceVector  Source = "vector"
	SourceKeyword Source = "keyword"
)

// SearchCandidate is one vector index hit.
type SearchCandidate struct {
	ProductID   string
	PointID     string
	VectorScore float64 // cosine similarity in [0,1]
	Category    string
	Owner       string
	Payload     map[string]string
}

// Breakdown explains how a relevance score was assembled.
type Breakdown struct {
	Vector   float64 `json:"vector"`
	Semantic float64 `json:"semantic"`
	Keyword  float64 `json:"keyword,omitempty"`
	InStock  float64 `json:"in_stock"`
	Tier     string  `json:"tier"`
}

// ScoredProduct is the unit the orchestrator ranks and truncates.
type ScoredProduct struct {
	Product   product.Product
	Relevance float64 // [0,100]
	Semantic  float64 // [0,1]
	Vector    float64 // [0,1], zero for keyword-only hits
	Source    Source
	Breakdown Breakdown
}
