package embedding

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/vector"
)

// Weights mix a text and an image vector before re-normalization.
type Weights struct {
	Text  float64
	Image float64
}

// Fixed modality mixes.
var (
	GeneralQueryWeights = Weights{Text: 0.6, Image: 0.4}
	JewelryQueryWeights = Weights{Text: 0.7, Image: 0.3}
	ProductWeights      = Weights{Text: 0.7, Image: 0.3}
)

// Flavor selects the query weights.
type Flavor int

const (
	FlavorGeneral Flavor = iota
	FlavorJewelry
)

// Options wire a Provider.
type Options struct {
	Text       domain.Embedder      // document-side text
	QueryText  domain.Embedder      // query-side text, e.g. with an instruction prefix; defaults to Text
	Image      domain.ImageEmbedder // optional
	Dimensions int
	Timeout    time.Duration
	Degraded   *prometheus.CounterVec // label "modality"
}

// Provider turns text and images into unit vectors of one shared space.
// Provider failures never surface: they degrade to the zero vector and
// the caller decides whether that is fatal.
type Provider struct {
	opts   Options
	logger *zap.Logger
}

// NewProvider creates a Provider.
func NewProvider(opts Options, logger *zap.Logger) *Provider {
	if opts.QueryText == nil {
		opts.QueryText = opts.Text
	}
	return &Provider{opts: opts, logger: logger}
}

// Dimensions is the vector size D.
func (p *Provider) Dimensions() int { return p.opts.Dimensions }

// EmbedText embeds document-side text.
func (p *Provider) EmbedText(ctx context.Context, text string) []float32 {
	return p.embedText(ctx, p.opts.Text, text)
}

// EmbedImage embeds raw image bytes.
func (p *Provider) EmbedImage(ctx context.Context, image []byte) []float32 {
	if len(image) == 0 {
		return vector.Zero(p.opts.Dimensions)
	}
	if p.opts.Image == nil {
		p.degrade("image", "no image embedder configured", nil)
		return vector.Zero(p.opts.Dimensions)
	}
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	res, err := p.opts.Image.EmbedImage(ctx, image)
	return p.accept("image", res, err)
}

// EmbedQuery embeds whichever modalities are present, concurrently, and
// mixes them with the flavor's weights.
func (p *Provider) EmbedQuery(ctx context.Context, text string, image []byte, flavor Flavor) []float32 {
	w := GeneralQueryWeights
	if flavor == FlavorJewelry {
		w = JewelryQueryWeights
	}

	var tv, iv []float32
	var wg sync.WaitGroup
	if text != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tv = p.embedText(ctx, p.opts.QueryText, text)
		}()
	}
	if len(image) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			iv = p.EmbedImage(ctx, image)
		}()
	}
	wg.Wait()

	return p.mix(tv, iv, w)
}

// EmbedProduct embeds a product at ingestion with ProductWeights.
func (p *Provider) EmbedProduct(ctx context.Context, text string, image []byte) []float32 {
	tv := p.EmbedText(ctx, text)
	var iv []float32
	if len(image) > 0 {
		iv = p.EmbedImage(ctx, image)
	}
	return p.mix(tv, iv, ProductWeights)
}

func (p *Provider) mix(tv, iv []float32, w Weights) []float32 {
	if tv == nil {
		tv = vector.Zero(p.opts.Dimensions)
	}
	if iv == nil {
		iv = vector.Zero(p.opts.Dimensions)
	}
	return vector.Combine(tv, w.Text, iv, w.Image)
}

func (p *Provider) embedText(ctx context.Context, e domain.Embedder, text string) []float32 {
	if text == "" {
		return vector.Zero(p.opts.Dimensions)
	}
	if e == nil {
		p.degrade("text", "no text embedder configured", nil)
		return vector.Zero(p.opts.Dimensions)
	}
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	res, err := e.Embed(ctx, text)
	return p.accept("text", res, err)
}

func (p *Provider) accept(modality string, res domain.EmbeddingResult, err error) []float32 {
	switch {
	case err != nil:
		p.degrade(modality, "provider error", err)
	case len(res.Embedding) == 0 || vector.IsZero(res.Embedding):
		p.degrade(modality, "empty embedding", nil)
	case p.opts.Dimensions > 0 && len(res.Embedding) != p.opts.Dimensions:
		p.degrade(modality, "dimension mismatch", nil)
	default:
		return vector.Normalize(res.Embedding)
	}
	return vector.Zero(p.opts.Dimensions)
}

func (p *Provider) degrade(modality, reason string, err error) {
	p.logger.Warn("Embedding degraded to zero vector",
		zap.String("modality", modality),
		zap.String("reason", reason),
		zap.Error(err),
	)
	if p.opts.Degraded != nil {
		p.opts.Degraded.WithLabelValues(modality).Inc()
	}
}

func (p *Provider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.opts.Timeout)
}
