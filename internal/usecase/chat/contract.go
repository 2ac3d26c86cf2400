package chat

import (
	"context"

	"github.com/kailas-cloud/shopsearch/internal/domain/conversation"
	"github.com/kailas-cloud/shopsearch/internal/domain/query"
	"github.com/kailas-cloud/shopsearch/internal/usecase/compose"
	"github.com/kailas-cloud/shopsearch/internal/usecase/retrieval"
)

// SessionStore binds sessions to owners and keeps their history.
type SessionStore interface {
	Create(ctx context.Context, owner string) (string, error)
	Owner(ctx context.Context, sessionID string) (string, error)
	AppendTurn(ctx context.Context, t conversation.Turn, maxTurns int) error
	RecentTurns(ctx context.Context, sessionID string, n int) ([]conversation.Turn, error)
}

// Retriever ranks products for a validated query.
type Retriever interface {
	Retrieve(ctx context.Context, q query.Query) (retrieval.Result, error)
}

// Composer writes the assistant reply. It never fails.
type Composer interface {
	Compose(ctx context.Context, in compose.Input) string
}
