package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/domain"
)

// InstrumentedEmbedder wraps a text or image embedder with structured logging.
// Transport metrics (requests, duration, tokens) are recorded in transport/openai.
type InstrumentedEmbedder struct {
	text     domain.Embedder
	image    domain.ImageEmbedder
	provider string
	model    string
	logger   *zap.Logger
}

// NewInstrumentedEmbedder wraps a text embedder.
func NewInstrumentedEmbedder(inner domain.Embedder, provider, model string, logger *zap.Logger) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{text: inner, provider: provider, model: model, logger: logger}
}

// NewInstrumentedImageEmbedder wraps an image embedder.
func NewInstrumentedImageEmbedder(
	inner domain.ImageEmbedder, provider, model string, logger *zap.Logger,
) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{image: inner, provider: provider, model: model, logger: logger}
}

// Embed delegates to the wrapped text embedder.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if p.text == nil {
		return domain.EmbeddingResult{}, fmt.Errorf("no text embedder configured")
	}
	return p.observe("text", func() (domain.EmbeddingResult, error) {
		return p.text.Embed(ctx, text)
	})
}

// EmbedImage delegates to the wrapped image embedder.
func (p *InstrumentedEmbedder) EmbedImage(ctx context.Context, image []byte) (domain.EmbeddingResult, error) {
	if p.image == nil {
		return domain.EmbeddingResult{}, fmt.Errorf("no image embedder configured")
	}
	return p.observe("image", func() (domain.EmbeddingResult, error) {
		return p.image.EmbedImage(ctx, image)
	})
}

func (p *InstrumentedEmbedder) observe(
	modality string, call func() (domain.EmbeddingResult, error),
) (domain.EmbeddingResult, error) {
	start := time.Now()
	result, err := call()
	duration := time.Since(start)

	if err != nil {
		p.logger.Error("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.String("modality", modality),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed %s: %w", modality, err)
	}

	p.logger.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.String("modality", modality),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("total_tokens", result.TotalTokens),
	)
	return result, nil
}
