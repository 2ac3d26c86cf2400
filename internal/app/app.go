// Package app is the composition root shared by the server and the
// ingestion CLI: store, repositories, embedder chain and use cases.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/config"
	"github.com/kailas-cloud/shopsearch/internal/db"
	dbRedis "github.com/kailas-cloud/shopsearch/internal/db/redis"
	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/metrics"
	catalogrepo "github.com/kailas-cloud/shopsearch/internal/repository/catalog"
	"github.com/kailas-cloud/shopsearch/internal/repository/embcache"
	sessionrepo "github.com/kailas-cloud/shopsearch/internal/repository/session"
	"github.com/kailas-cloud/shopsearch/internal/repository/vectorindex"
	openaiTransport "github.com/kailas-cloud/shopsearch/internal/transport/openai"
	cataloguc "github.com/kailas-cloud/shopsearch/internal/usecase/catalog"
	chatuc "github.com/kailas-cloud/shopsearch/internal/usecase/chat"
	"github.com/kailas-cloud/shopsearch/internal/usecase/compose"
	embeddinguc "github.com/kailas-cloud/shopsearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/shopsearch/internal/usecase/health"
	"github.com/kailas-cloud/shopsearch/internal/usecase/retrieval"
)

// App holds the wired services. Close releases the store and the pool.
type App struct {
	Store     db.Store
	Chat      *chatuc.Service
	Catalog   *cataloguc.Service
	Retrieval *retrieval.Service
	Health    *healthuc.Service
}

// Close releases resources.
func (a *App) Close() {
	if a.Catalog != nil {
		a.Catalog.Release()
	}
	a.Store.Close()
}

// New connects to the store, ensures the search indexes and wires every
// use case from cfg.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:        cfg.Database.Addrs,
		Username:     cfg.Database.Username,
		Password:     cfg.Database.Password,
		DB:           cfg.Database.DB,
		ClientName:   cfg.Database.ClientName,
		DialTimeout:  time.Duration(cfg.Database.DialTimeoutMs) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Database.WriteTimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("create database store: %w", err)
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database", zap.Strings("db_addrs", cfg.Database.Addrs))

	a, err := wire(ctx, cfg, store, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	return a, nil
}

func wire(ctx context.Context, cfg *config.Config, store db.Store, logger *zap.Logger) (*App, error) {
	// Register embedding and search metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	prefix := cfg.Storage.KeyPrefix
	products := catalogrepo.New(store, prefix)
	points := vectorindex.New(store, vectorindex.Options{
		KeyPrefix:   prefix,
		Dimensions:  cfg.Embedding.Dimensions,
		M:           cfg.Storage.HNSWM,
		EFConstruct: cfg.Storage.HNSWEFConstruct,
	})
	sessions := sessionrepo.New(store, prefix, cfg.SessionTTL())

	if err := products.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("ensure catalog index: %w", err)
	}
	if err := points.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("ensure vector index: %w", err)
	}

	emb := buildEmbedders(cfg, store, logger)
	provider := embeddinguc.NewProvider(embeddinguc.Options{
		Text:       emb.text,
		QueryText:  emb.query,
		Image:      emb.image,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    cfg.EmbeddingTimeout(),
		Degraded:   metrics.EmbeddingDegradedTotal,
	}, logger)

	r := cfg.Retrieval
	retriever := retrieval.New(products, points, provider, retrieval.Thresholds{
		Category:     r.CategoryThreshold,
		BroadStrict:  r.BroadStrictThreshold,
		BroadLoose:   r.BroadLooseThreshold,
		GapCutoff:    r.GapCutoff,
		MinKeep:      r.MinKeepScore,
		FallbackKeep: r.FallbackKeep,
		IndexTimeout: cfg.IndexTimeout(),
	}, logger)

	composer := compose.New(buildSummarizer(cfg, logger), cfg.SummarizerTimeout(), logger)

	chat := chatuc.New(sessions, retriever, composer, chatuc.Options{
		HistoryTurns: cfg.Session.HistoryTurns,
		DefaultLimit: r.DefaultLimit,
		MaxLimit:     r.MaxLimit,
	}, logger)

	catalog, err := cataloguc.New(products, points, provider, cataloguc.Options{
		Workers:      cfg.Ingest.Workers,
		MaxBatchSize: cfg.Ingest.MaxBatchSize,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create catalog service: %w", err)
	}

	var checker healthuc.EmbeddingChecker
	if emb.health != nil {
		checker = emb.health
	}
	health := healthuc.New(store, store, checker, products.IndexName(), points.Name())

	return &App{Store: store, Chat: chat, Catalog: catalog, Retrieval: retriever, Health: health}, nil
}

type embedders struct {
	text   domain.Embedder
	query  domain.Embedder
	image  domain.ImageEmbedder
	health domain.HealthChecker
}

// buildEmbedders assembles the decorator chains:
// OpenAI -> Cached -> Instrumented -> Instruction (query side only).
func buildEmbedders(cfg *config.Config, store db.Store, logger *zap.Logger) embedders {
	var out embedders
	ttl := time.Duration(cfg.Embedding.CacheTTLSec) * time.Second

	if vc, ok := cfg.Embedding.Vectorizers["text"]; ok {
		base := newOpenAIEmbedder(cfg, vc, logger)
		out.health = base

		cached := embcache.New(base, store, embcache.Options{
			KeyPrefix: cfg.Storage.KeyPrefix, Model: vc.Model, TTL: ttl,
		}, metrics.EmbeddingCacheTotal, logger)
		var text domain.Embedder = embeddinguc.NewInstrumentedEmbedder(cached, vc.Provider, vc.Model, logger)
		out.text = text
		out.query = text
		// Instruction prefix is outermost so cache keys include it.
		if vc.QueryInstruction != "" {
			out.query = domain.NewInstructionEmbedder(text, vc.QueryInstruction)
		}
	}

	if vc, ok := cfg.Embedding.Vectorizers["image"]; ok {
		base := newOpenAIEmbedder(cfg, vc, logger)
		if out.health == nil {
			out.health = base
		}
		cached := embcache.NewImage(base, store, embcache.Options{
			KeyPrefix: cfg.Storage.KeyPrefix, Model: vc.Model, TTL: ttl,
		}, metrics.EmbeddingCacheTotal, logger)
		out.image = embeddinguc.NewInstrumentedImageEmbedder(cached, vc.Provider, vc.Model, logger)
	}

	logger.Info("Embedders created",
		zap.Bool("text", out.text != nil),
		zap.Bool("image", out.image != nil),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)
	return out
}

func newOpenAIEmbedder(cfg *config.Config, vc config.VectorizerConfig, logger *zap.Logger) *openaiTransport.Embedder {
	prov := cfg.Embedding.Providers[vc.Provider]
	return openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     prov.APIKey,
		BaseURL:    prov.BaseURL,
		Model:      vc.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   vc.Provider,
		Logger:     logger,
	})
}

// buildSummarizer returns nil when disabled; the composer then always
// uses the template reply.
func buildSummarizer(cfg *config.Config, logger *zap.Logger) compose.Summarizer {
	sc := cfg.Summarizer
	if !sc.Enabled {
		return nil
	}
	prov := cfg.Embedding.Providers[sc.Provider]
	return openaiTransport.NewSummarizer(&openaiTransport.SummarizerConfig{
		Config: openaiTransport.Config{
			APIKey:   prov.APIKey,
			BaseURL:  prov.BaseURL,
			Model:    sc.Model,
			Provider: sc.Provider,
			Logger:   logger,
		},
		MaxTokens:   sc.MaxTokens,
		Temperature: sc.Temperature,
	})
}
