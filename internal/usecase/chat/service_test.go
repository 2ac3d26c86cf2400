package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/candidate"
	"github.com/kailas-cloud/shopsearch/internal/domain/category"
	"github.com/kailas-cloud/shopsearch/internal/domain/conversation"
	"github.com/kailas-cloud/shopsearch/internal/domain/product"
	"github.com/kailas-cloud/shopsearch/internal/usecase/compose"
	"github.com/kailas-cloud/shopsearch/internal/usecase/retrieval"
)

func scoredRing() candidate.ScoredProduct {
	return candidate.ScoredProduct{
		Product: product.Reconstruct("ring", "owner-a",
			product.Attrs{Name: "Simple Gold Ring", Category: "Jewelry", Price: 120}, time.Time{}),
		Relevance: 94,
		Source:    candidate.SourceVector,
	}
}

func newTestService(s *mockSessions, r *mockRetriever, c *mockComposer) *Service {
	return New(s, r, c, Options{HistoryTurns: 10, MaxLimit: 50}, zap.NewNop())
}

func TestHandleQuery_CategoryOnlyRejected(t *testing.T) {
	sessions := newMockSessions()
	sessions.ownerErr = errors.New("must not be called")
	r := &mockRetriever{}
	svc := newTestService(sessions, r, &mockComposer{})

	_, err := svc.HandleQuery(context.Background(), Request{SessionID: "sess-1", CategoryHint: "jewelry"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if domain.StageOf(err) != domain.StageValidate {
		t.Errorf("stage = %q", domain.StageOf(err))
	}
	if len(r.queries) != 0 {
		t.Error("retriever must not run on invalid input")
	}
}

func TestHandleQuery_BadSort(t *testing.T) {
	svc := newTestService(newMockSessions(), &mockRetriever{}, &mockComposer{})
	_, err := svc.HandleQuery(context.Background(), Request{SessionID: "sess-1", Text: "ring", Sort: "random"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestHandleQuery_UnknownSession(t *testing.T) {
	svc := newTestService(newMockSessions(), &mockRetriever{}, &mockComposer{})
	_, err := svc.HandleQuery(context.Background(), Request{SessionID: "nope", Text: "ring"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if domain.StageOf(err) != domain.StageSession {
		t.Errorf("stage = %q", domain.StageOf(err))
	}
}

func TestHandleQuery_FirstGreetingSkipsRetrieval(t *testing.T) {
	sessions := newMockSessions()
	r := &mockRetriever{}
	c := &mockComposer{}
	svc := newTestService(sessions, r, c)

	resp, err := svc.HandleQuery(context.Background(), Request{SessionID: "sess-1", Text: "hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != compose.FirstGreeting {
		t.Errorf("reply = %q", resp.Text)
	}
	if len(r.queries) != 0 || len(c.inputs) != 0 {
		t.Error("greeting must not embed, retrieve or compose")
	}
	if got := len(sessions.turns["sess-1"]); got != 2 {
		t.Errorf("saved %d turns, want 2", got)
	}

	resp, _ = svc.HandleQuery(context.Background(), Request{SessionID: "sess-1", Text: "hi again"})
	if resp.Text != compose.RepeatGreeting {
		t.Errorf("second greeting = %q", resp.Text)
	}
}

func TestHandleQuery_GreetingWithProductTermsSearches(t *testing.T) {
	for _, text := range []string{"hi gold rings", "hello, any red dresses?", "hey wireless headphones"} {
		t.Run(text, func(t *testing.T) {
			r := &mockRetriever{result: retrieval.Result{
				Products: []candidate.ScoredProduct{scoredRing()},
				Category: category.Jewelry,
			}}
			svc := newTestService(newMockSessions(), r, &mockComposer{})

			resp, err := svc.HandleQuery(context.Background(), Request{SessionID: "sess-1", Text: text})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(r.queries) != 1 {
				t.Fatalf("retrievals = %d, want 1", len(r.queries))
			}
			if resp.Text == compose.FirstGreeting || len(resp.Products) != 1 {
				t.Errorf("response = %+v", resp)
			}
		})
	}
}

func TestHandleQuery_Results(t *testing.T) {
	sessions := newMockSessions()
	r := &mockRetriever{result: retrieval.Result{
		Products: []candidate.ScoredProduct{scoredRing()},
		Category: category.Jewelry,
		Tiers:    []string{retrieval.TierCategory},
	}}
	c := &mockComposer{}
	svc := newTestService(sessions, r, c)

	resp, err := svc.HandleQuery(context.Background(), Request{
		SessionID: "sess-1", Text: "simple gold ring", Limit: 5, Sort: "price_asc",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.NoResults || len(resp.Products) != 1 || resp.Text != "composed reply" {
		t.Errorf("response = %+v", resp)
	}
	if resp.Category != category.Jewelry {
		t.Errorf("category = %q", resp.Category)
	}

	q := r.queries[0]
	if q.Owner() != "owner-a" || q.Limit() != 5 || q.Sort() != "price_asc" {
		t.Errorf("query owner=%q limit=%d sort=%q", q.Owner(), q.Limit(), q.Sort())
	}
	if !c.inputs[0].Jewelry {
		t.Error("jewelry results should request the jewelry template")
	}

	turns := sessions.turns["sess-1"]
	if len(turns) != 2 {
		t.Fatalf("saved %d turns", len(turns))
	}
	if turns[0].Role != conversation.RoleUser || turns[0].Text != "simple gold ring" {
		t.Errorf("user turn = %+v", turns[0])
	}
	if turns[1].Role != conversation.RoleAssistant || len(turns[1].ProductIDs) != 1 ||
		turns[1].ProductNames[0] != "Simple Gold Ring" {
		t.Errorf("assistant turn = %+v", turns[1])
	}
}

func TestHandleQuery_NoResults(t *testing.T) {
	svc := newTestService(newMockSessions(), &mockRetriever{}, &mockComposer{})

	resp, err := svc.HandleQuery(context.Background(), Request{SessionID: "sess-1", Text: "purple unicorn saddle"})
	if err != nil {
		t.Fatalf("no-results is not an error, got %v", err)
	}
	if !resp.NoResults || len(resp.Products) != 0 {
		t.Errorf("response = %+v", resp)
	}
	if resp.Text != compose.NoResultsMessage {
		t.Errorf("reply = %q", resp.Text)
	}
}

func TestHandleQuery_RetrievalErrorPropagates(t *testing.T) {
	sessions := newMockSessions()
	r := &mockRetriever{err: domain.NewStageError(domain.StageEmbedding, domain.ErrEmbeddingFailure)}
	svc := newTestService(sessions, r, &mockComposer{})

	_, err := svc.HandleQuery(context.Background(), Request{SessionID: "sess-1", Text: "ring"})
	if !errors.Is(err, domain.ErrEmbeddingFailure) {
		t.Fatalf("expected ErrEmbeddingFailure, got %v", err)
	}
	if len(sessions.turns["sess-1"]) != 0 {
		t.Error("failed queries are not recorded")
	}
}

func TestHandleQuery_SimilarFollowUp(t *testing.T) {
	sessions := newMockSessions()
	sessions.turns["sess-1"] = []conversation.Turn{
		{SessionID: "sess-1", Role: conversation.RoleUser, Text: "gold ring"},
		{SessionID: "sess-1", Role: conversation.RoleAssistant, Text: "Here you go",
			ProductIDs: []string{"ring"}, ProductNames: []string{"Simple Gold Ring"}},
	}
	r := &mockRetriever{}
	svc := newTestService(sessions, r, &mockComposer{})

	if _, err := svc.HandleQuery(context.Background(), Request{SessionID: "sess-1", Text: "show similar products"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := r.queries[0].Text(); got != "Simple Gold Ring" {
		t.Errorf("search text = %q, want previous product name", got)
	}
}

func TestHandleQuery_HistoryFailuresAreSoft(t *testing.T) {
	sessions := newMockSessions()
	sessions.readErr = errors.New("read failed")
	sessions.writeErr = errors.New("write failed")
	r := &mockRetriever{result: retrieval.Result{Products: []candidate.ScoredProduct{scoredRing()}}}
	svc := newTestService(sessions, r, &mockComposer{})

	resp, err := svc.HandleQuery(context.Background(), Request{SessionID: "sess-1", Text: "gold ring"})
	if err != nil {
		t.Fatalf("history errors must not fail the query: %v", err)
	}
	if len(resp.Products) != 1 {
		t.Errorf("products = %d", len(resp.Products))
	}
}

func TestHandleQuery_ImageOnlyRecordsPlaceholder(t *testing.T) {
	sessions := newMockSessions()
	svc := newTestService(sessions, &mockRetriever{}, &mockComposer{})

	_, err := svc.HandleQuery(context.Background(), Request{SessionID: "sess-1", Image: []byte{0xff, 0xd8, 0xff}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := sessions.turns["sess-1"][0].Text; got != imageTurnText {
		t.Errorf("user turn text = %q", got)
	}
}

func TestStartSessionAndHistory(t *testing.T) {
	sessions := newMockSessions()
	svc := newTestService(sessions, &mockRetriever{}, &mockComposer{})

	if _, err := svc.StartSession(context.Background(), "  "); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for blank owner, got %v", err)
	}
	id, err := svc.StartSession(context.Background(), "owner-b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.HandleQuery(context.Background(), Request{SessionID: id, Text: "hello"}); err != nil {
		t.Fatal(err)
	}
	turns, err := svc.History(context.Background(), id, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(turns) != 1 || turns[0].Role != conversation.RoleAssistant {
		t.Errorf("history = %+v", turns)
	}

	if _, err := svc.History(context.Background(), "missing", 5); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
