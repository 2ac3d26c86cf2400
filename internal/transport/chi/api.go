package chi

import (
	"time"

	"github.com/kailas-cloud/shopsearch/internal/domain/candidate"
)

// ErrorCode is the machine-readable error class in ErrorResponse.
type ErrorCode string

const (
	ErrorCodeBadRequest           ErrorCode = "bad_request"
	ErrorCodeUnauthorized         ErrorCode = "unauthorized"
	ErrorCodeInvalidInput         ErrorCode = "invalid_input"
	ErrorCodeNotFound             ErrorCode = "not_found"
	ErrorCodeEmbeddingUnavailable ErrorCode = "embedding_unavailable"
	ErrorCodeIndexUnavailable     ErrorCode = "index_unavailable"
	ErrorCodeInternalError        ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Stage   string    `json:"stage,omitempty"`
}

// CreateSessionRequest is the body of POST /sessions.
type CreateSessionRequest struct {
	OwnerID string `json:"owner_id"`
}

// CreateSessionResponse returns the new session ID.
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

// QueryRequest is the JSON body of POST /sessions/{sessionID}/query.
type QueryRequest struct {
	Text        string  `json:"text"`
	ImageBase64 string  `json:"image_base64,omitempty"`
	Category    string  `json:"category,omitempty"`
	Limit       int     `json:"limit,omitempty"`
	MinScore    float64 `json:"min_score,omitempty"`
	Sort        string  `json:"sort,omitempty"`
}

// Product is a catalog record on the wire.
type Product struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Category    string    `json:"category,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	InStock     bool      `json:"in_stock"`
	CreatedAt   time.Time `json:"created_at"`
}

// ScoredProduct is a ranked query result.
type ScoredProduct struct {
	Product
	Relevance float64             `json:"relevance"`
	Source    string              `json:"source"`
	Breakdown candidate.Breakdown `json:"score_breakdown"`
}

// QueryResponse is the assistant's answer.
type QueryResponse struct {
	Response  string          `json:"response"`
	Products  []ScoredProduct `json:"products"`
	NoResults bool            `json:"no_results"`
	Category  string          `json:"category,omitempty"`
	Tiers     []string        `json:"tiers,omitempty"`
	Degraded  bool            `json:"degraded,omitempty"`
}

// SearchRequest is the body of POST /products/search.
type SearchRequest struct {
	OwnerID     string  `json:"owner_id"`
	Text        string  `json:"text,omitempty"`
	ImageBase64 string  `json:"image_base64,omitempty"`
	Category    string  `json:"category,omitempty"`
	Limit       int     `json:"limit,omitempty"`
	MinScore    float64 `json:"min_score,omitempty"`
	Sort        string  `json:"sort,omitempty"`
}

// SearchResponse lists ranked products without a composed reply.
type SearchResponse struct {
	Products  []ScoredProduct `json:"products"`
	NoResults bool            `json:"no_results"`
	Category  string          `json:"category,omitempty"`
	Tiers     []string        `json:"tiers,omitempty"`
	Degraded  bool            `json:"degraded,omitempty"`
}

// Turn is one history entry.
type Turn struct {
	Role       string    `json:"role"`
	Text       string    `json:"text"`
	ProductIDs []string  `json:"product_ids,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// HistoryResponse lists turns oldest first.
type HistoryResponse struct {
	SessionID string `json:"session_id"`
	Turns     []Turn `json:"turns"`
}

// HistoryParams are the query parameters of GET /sessions/{sessionID}/history.
type HistoryParams struct {
	Limit *int `form:"limit,omitempty" json:"limit,omitempty"`
}

// IngestItem is one uploaded product.
type IngestItem struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"image_url"`
	InStock     *bool   `json:"in_stock,omitempty"`
	ImageBase64 string  `json:"image_base64,omitempty"`
}

// IngestRequest is the body of POST /products.
type IngestRequest struct {
	OwnerID  string       `json:"owner_id"`
	Products []IngestItem `json:"products"`
}

// IngestResult is the per-item outcome.
type IngestResult struct {
	Index  int        `json:"index"`
	ID     string     `json:"id,omitempty"`
	Name   string     `json:"name"`
	Status string     `json:"status"`
	Error  *ErrorBody `json:"error,omitempty"`
}

// ErrorBody is an inline item error.
type ErrorBody struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// IngestResponse summarizes an upload.
type IngestResponse struct {
	Inserted int            `json:"inserted"`
	Failed   int            `json:"failed"`
	Results  []IngestResult `json:"results"`
}

// HealthResponse reports component checks.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
