package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/rueidis"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/db"
	"github.com/kailas-cloud/shopsearch/internal/domain"
)

// store is the consumer interface for the embedding cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Options configure the cache namespace and expiry.
type Options struct {
	KeyPrefix string        // e.g. "shopsearch:"
	Model     string        // part of the key so a model swap never serves stale vectors
	TTL       time.Duration // <= 0 keeps entries forever
}

// cache is the shared lookup/put logic behind both decorators.
type cache struct {
	store      store
	prefix     string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

func newCache(s store, modality string, opts Options, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *cache {
	return &cache{
		store:      s,
		prefix:     fmt.Sprintf("%semb_cache:%s:%s:", opts.KeyPrefix, modality, opts.Model),
		ttl:        opts.TTL,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// CachedEmbedder caches text embeddings in a key-value store.
type CachedEmbedder struct {
	inner domain.Embedder
	cache *cache
}

// New creates a caching decorator for text.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner domain.Embedder,
	s store,
	opts Options,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: newCache(s, "text", opts, cacheTotal, logger)}
}

// Embed returns a cached embedding or calls the inner embedder.
// Cache hit: TotalTokens = 0 (no real tokens consumed).
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.cache.key([]byte(text))

	if vec, ok := c.cache.get(ctx, key); ok {
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	result, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}

	c.cache.put(ctx, key, result.Embedding)
	return result, nil
}

// CachedImageEmbedder caches image embeddings keyed by a digest of the image bytes.
type CachedImageEmbedder struct {
	inner domain.ImageEmbedder
	cache *cache
}

// NewImage creates a caching decorator for images.
func NewImage(
	inner domain.ImageEmbedder,
	s store,
	opts Options,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedImageEmbedder {
	return &CachedImageEmbedder{inner: inner, cache: newCache(s, "image", opts, cacheTotal, logger)}
}

// EmbedImage returns a cached embedding or calls the inner embedder.
func (c *CachedImageEmbedder) EmbedImage(ctx context.Context, image []byte) (domain.EmbeddingResult, error) {
	key := c.cache.key(image)

	if vec, ok := c.cache.get(ctx, key); ok {
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	result, err := c.inner.EmbedImage(ctx, image)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed image: %w", err)
	}

	c.cache.put(ctx, key, result.Embedding)
	return result, nil
}

func (c *cache) key(content []byte) string {
	h := sha256.Sum256(content)
	return c.prefix + hex.EncodeToString(h[:])
}

func (c *cache) inc(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *cache) get(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		c.inc("miss")
		return nil, false
	}
	if len(data) == 0 {
		c.inc("miss")
		return nil, false
	}

	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		c.inc("miss")
		return nil, false
	}

	c.inc("hit")
	return vec, true
}

func (c *cache) put(ctx context.Context, key string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	if err := c.store.SetWithTTL(ctx, key, []byte(rueidis.VectorString32(vec)), c.ttl); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

// Cached vectors use the FT BLOB layout: little-endian float32.
func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	return rueidis.ToVector32(string(data)), nil
}
