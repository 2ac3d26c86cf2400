package chi

import (
	"context"
	"net/http"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/conversation"
	"github.com/kailas-cloud/shopsearch/internal/domain/product"
	"github.com/kailas-cloud/shopsearch/internal/domain/query"
	cataloguc "github.com/kailas-cloud/shopsearch/internal/usecase/catalog"
	chatuc "github.com/kailas-cloud/shopsearch/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/shopsearch/internal/usecase/health"
	"github.com/kailas-cloud/shopsearch/internal/usecase/retrieval"
)

// --- Mocks ---

type mockChat struct {
	startFn   func(ctx context.Context, owner string) (string, error)
	queryFn   func(ctx context.Context, req chatuc.Request) (chatuc.Response, error)
	historyFn func(ctx context.Context, id string, n int) ([]conversation.Turn, error)
}

func (m *mockChat) StartSession(ctx context.Context, owner string) (string, error) {
	if m.startFn != nil {
		return m.startFn(ctx, owner)
	}
	return "sess-1", nil
}

func (m *mockChat) HandleQuery(ctx context.Context, req chatuc.Request) (chatuc.Response, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, req)
	}
	return chatuc.Response{Text: "ok", NoResults: true}, nil
}

func (m *mockChat) History(ctx context.Context, id string, n int) ([]conversation.Turn, error) {
	if m.historyFn != nil {
		return m.historyFn(ctx, id, n)
	}
	return nil, nil
}

type mockCatalog struct {
	ingestFn func(ctx context.Context, owner string, items []cataloguc.Item) (cataloguc.Report, error)
	getFn    func(ctx context.Context, id string) (product.Product, error)
}

func (m *mockCatalog) Ingest(ctx context.Context, owner string, items []cataloguc.Item) (cataloguc.Report, error) {
	if m.ingestFn != nil {
		return m.ingestFn(ctx, owner, items)
	}
	return cataloguc.Report{}, nil
}

func (m *mockCatalog) Get(ctx context.Context, id string) (product.Product, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return product.Product{}, domain.ErrNotFound
}

type mockSearch struct {
	retrieveFn func(ctx context.Context, q query.Query) (retrieval.Result, error)
}

func (m *mockSearch) Retrieve(ctx context.Context, q query.Query) (retrieval.Result, error) {
	if m.retrieveFn != nil {
		return m.retrieveFn(ctx, q)
	}
	return retrieval.Result{}, nil
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

func newTestRouter(t *testing.T, chat *mockChat, catalog *mockCatalog, health *mockHealth) http.Handler {
	t.Helper()
	return newRouterWithSearch(t, chat, catalog, nil, health)
}

func newSearchRouter(t *testing.T, search *mockSearch) http.Handler {
	t.Helper()
	return newRouterWithSearch(t, nil, nil, search, nil)
}

func newRouterWithSearch(t *testing.T, chat *mockChat, catalog *mockCatalog, search *mockSearch, health *mockHealth) http.Handler {
	t.Helper()
	if chat == nil {
		chat = &mockChat{}
	}
	if catalog == nil {
		catalog = &mockCatalog{}
	}
	if search == nil {
		search = &mockSearch{}
	}
	if health == nil {
		health = &mockHealth{report: healthuc.Report{Status: healthuc.Healthy}}
	}
	srv := NewServer(chat, catalog, search, health, 1<<20, zap.NewNop())
	return NewRouter(srv, nil, zap.NewNop())
}
