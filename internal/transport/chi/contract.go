package chi

import (
	"context"

	"github.com/kailas-cloud/shopsearch/internal/domain/conversation"
	"github.com/kailas-cloud/shopsearch/internal/domain/product"
	"github.com/kailas-cloud/shopsearch/internal/domain/query"
	cataloguc "github.com/kailas-cloud/shopsearch/internal/usecase/catalog"
	chatuc "github.com/kailas-cloud/shopsearch/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/shopsearch/internal/usecase/health"
	"github.com/kailas-cloud/shopsearch/internal/usecase/retrieval"
)

// ChatService answers conversational queries.
type ChatService interface {
	StartSession(ctx context.Context, owner string) (string, error)
	HandleQuery(ctx context.Context, req chatuc.Request) (chatuc.Response, error)
	History(ctx context.Context, sessionID string, n int) ([]conversation.Turn, error)
}

// CatalogService ingests and reads products.
type CatalogService interface {
	Ingest(ctx context.Context, owner string, items []cataloguc.Item) (cataloguc.Report, error)
	Get(ctx context.Context, id string) (product.Product, error)
}

// SearchService runs a single retrieval outside any session.
type SearchService interface {
	Retrieve(ctx context.Context, q query.Query) (retrieval.Result, error)
}

// HealthService aggregates component checks.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}
