package chat

import (
	"context"

	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/conversation"
	"github.com/kailas-cloud/shopsearch/internal/domain/query"
	"github.com/kailas-cloud/shopsearch/internal/usecase/compose"
	"github.com/kailas-cloud/shopsearch/internal/usecase/retrieval"
)

// --- Mocks ---

type mockSessions struct {
	owners   map[string]string
	turns    map[string][]conversation.Turn
	ownerErr error
	readErr  error
	writeErr error
	created  []string
}

func newMockSessions() *mockSessions {
	return &mockSessions{
		owners: map[string]string{"sess-1": "owner-a"},
		turns:  map[string][]conversation.Turn{},
	}
}

func (m *mockSessions) Create(_ context.Context, owner string) (string, error) {
	id := "sess-new"
	m.owners[id] = owner
	m.created = append(m.created, owner)
	return id, nil
}

func (m *mockSessions) Owner(_ context.Context, id string) (string, error) {
	if m.ownerErr != nil {
		return "", m.ownerErr
	}
	owner, ok := m.owners[id]
	if !ok {
		return "", domain.ErrNotFound
	}
	return owner, nil
}

func (m *mockSessions) AppendTurn(_ context.Context, t conversation.Turn, maxTurns int) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	l := append(m.turns[t.SessionID], t)
	if len(l) > maxTurns {
		l = l[len(l)-maxTurns:]
	}
	m.turns[t.SessionID] = l
	return nil
}

func (m *mockSessions) RecentTurns(_ context.Context, id string, n int) ([]conversation.Turn, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	l := m.turns[id]
	if len(l) > n {
		l = l[len(l)-n:]
	}
	return l, nil
}

type mockRetriever struct {
	result  retrieval.Result
	err     error
	queries []query.Query
}

func (m *mockRetriever) Retrieve(_ context.Context, q query.Query) (retrieval.Result, error) {
	m.queries = append(m.queries, q)
	return m.result, m.err
}

type mockComposer struct {
	inputs []compose.Input
}

func (m *mockComposer) Compose(_ context.Context, in compose.Input) string {
	m.inputs = append(m.inputs, in)
	if len(in.Products) == 0 {
		return compose.EmptyMessage(in.Query)
	}
	return "composed reply"
}
