package embedding

import (
	"context"
	"sync/atomic"

	"github.com/kailas-cloud/shopsearch/internal/domain"
)

type mockEmbedder struct {
	result domain.EmbeddingResult
	err    error
	embed  func(ctx context.Context, in string) (domain.EmbeddingResult, error)
	calls  atomic.Int32
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls.Add(1)
	if m.embed != nil {
		return m.embed(ctx, text)
	}
	return m.result, m.err
}

func (m *mockEmbedder) EmbedImage(ctx context.Context, image []byte) (domain.EmbeddingResult, error) {
	m.calls.Add(1)
	if m.embed != nil {
		return m.embed(ctx, string(image))
	}
	return m.result, m.err
}
