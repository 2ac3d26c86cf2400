package compose

import (
	"context"
	"time"

	"github.com/kailas-cloud/shopsearch/internal/domain/candidate"
	"github.com/kailas-cloud/shopsearch/internal/domain/product"
)

// --- Mocks ---

type mockSummarizer struct {
	reply  string
	err    error
	prompt string
	calls  int
}

func (m *mockSummarizer) Summarize(_ context.Context, prompt string) (string, error) {
	m.calls++
	m.prompt = prompt
	return m.reply, m.err
}

func sp(name, desc, cat string, price float64) candidate.ScoredProduct {
	return candidate.ScoredProduct{
		Product: product.Reconstruct(name, "owner-a", product.Attrs{
			Name: name, Description: desc, Category: cat, Price: price,
		}, time.Time{}),
		Relevance: 80,
	}
}
