// Package retrieval runs the tiered product search: category-scoped vector
// search, broad vector search at two thresholds, a keyword fallback, and a
// score-gap truncation of the merged list.
package retrieval

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/candidate"
	"github.com/kailas-cloud/shopsearch/internal/domain/category"
	"github.com/kailas-cloud/shopsearch/internal/domain/query"
	"github.com/kailas-cloud/shopsearch/internal/domain/vector"
	"github.com/kailas-cloud/shopsearch/internal/metrics"
	"github.com/kailas-cloud/shopsearch/internal/repository/vectorindex"
	"github.com/kailas-cloud/shopsearch/internal/usecase/classifier"
	"github.com/kailas-cloud/shopsearch/internal/usecase/embedding"
	"github.com/kailas-cloud/shopsearch/internal/usecase/relevance"
)

// Tier names, as reported in Result.Tiers and metrics.
const (
	TierCategory    = "category"
	TierBroadStrict = "broad_strict"
	TierBroadLoose  = "broad_loose"
	TierKeyword     = "keyword"
)

// Fetch depth multipliers over the requested limit.
const (
	fetchFactor        = 2
	jewelryFetchFactor = 5
	// scanLimit bounds the owner-scoped scan behind the keyword fallback.
	scanLimit = 200
)

// Thresholds tune the tiers and the truncation.
type Thresholds struct {
	Category     float64
	BroadStrict  float64
	BroadLoose   float64
	GapCutoff    float64
	MinKeep      float64
	FallbackKeep int
	IndexTimeout time.Duration
}

// DefaultThresholds returns the stock tuning.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Category:     0.5,
		BroadStrict:  0.4,
		BroadLoose:   0.25,
		GapCutoff:    10,
		MinKeep:      70,
		FallbackKeep: 3,
		IndexTimeout: 2 * time.Second,
	}
}

// Result is the ranked outcome of one query.
type Result struct {
	Products []candidate.ScoredProduct
	Category string
	Tiers    []string
	Degraded bool
}

// Service runs retrieval for validated queries.
type Service struct {
	catalog Catalog
	index   VectorIndex
	embed   Embedder
	t       Thresholds
	logger  *zap.Logger
}

// New creates a retrieval service.
func New(catalog Catalog, index VectorIndex, embed Embedder, t Thresholds, logger *zap.Logger) *Service {
	return &Service{catalog: catalog, index: index, embed: embed, t: t, logger: logger}
}

type state int

const (
	stateCategorySearch state = iota
	stateBroadSearch
	stateKeywordFallback
	stateTruncate
	stateDone
)

type keywordOutcome struct {
	items []candidate.ScoredProduct
	err   error
}

// run is the per-query state of the machine.
type run struct {
	q        query.Query
	category string
	jewelry  bool
	vec      []float32
	fetch    int

	hits        []candidate.ScoredProduct
	tiers       []string
	degraded    bool
	indexFailed bool

	// prescan is non-nil when the keyword scan was started at entry.
	prescan <-chan keywordOutcome
	keyword []candidate.ScoredProduct
}

// Retrieve ranks the owner's products against q.
func (s *Service) Retrieve(ctx context.Context, q query.Query) (Result, error) {
	start := time.Now()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r := &run{q: q, category: q.CategoryHint()}
	if r.category == "" && q.HasText() {
		r.category = classifier.Detect(q.Text())
	}
	r.jewelry = r.category == category.Jewelry || (q.HasText() && classifier.IsJewelryQuery(q.Text()))

	flavor := embedding.FlavorGeneral
	r.fetch = q.Limit() * fetchFactor
	if r.jewelry {
		flavor = embedding.FlavorJewelry
		r.fetch = q.Limit() * jewelryFetchFactor
	}

	if r.jewelry && q.HasText() {
		// Buffered so the scan can always deliver and exit, even when
		// nobody waits for it any more.
		ch := make(chan keywordOutcome, 1)
		scan := r.keywordScan()
		go func() {
			items, err := s.keywordSearch(ctx, scan)
			ch <- keywordOutcome{items: items, err: err}
		}()
		r.prescan = ch
	}

	r.vec = s.embed.EmbedQuery(ctx, q.Text(), q.Image(), flavor)
	if vector.IsZero(r.vec) {
		return Result{}, domain.NewStageError(domain.StageEmbedding, domain.ErrEmbeddingFailure)
	}

	st := stateCategorySearch
	for st != stateDone {
		var err error
		switch st {
		case stateCategorySearch:
			st, err = s.categorySearch(ctx, r)
		case stateBroadSearch:
			st, err = s.broadSearch(ctx, r)
		case stateKeywordFallback:
			st, err = s.keywordFallback(ctx, r)
		case stateTruncate:
			st = s.truncate(ctx, r)
		}
		if err != nil {
			return Result{}, err
		}
	}

	metrics.RetrievalDuration.WithLabelValues(strconv.FormatBool(r.degraded)).Observe(time.Since(start).Seconds())
	metrics.RetrievalResults.Observe(float64(len(r.hits)))

	return Result{
		Products: r.hits,
		Category: r.category,
		Tiers:    r.tiers,
		Degraded: r.degraded,
	}, nil
}

func (s *Service) categorySearch(ctx context.Context, r *run) (state, error) {
	if r.category == "" {
		return stateBroadSearch, nil
	}
	hits, err := s.vectorTier(ctx, r, TierCategory, r.category, s.t.Category)
	if err != nil {
		return s.indexDown(ctx, r, TierCategory, err)
	}
	if len(hits) == 0 {
		return stateBroadSearch, nil
	}
	r.hits = hits
	return stateTruncate, nil
}

func (s *Service) broadSearch(ctx context.Context, r *run) (state, error) {
	for _, tier := range []struct {
		name      string
		threshold float64
	}{
		{TierBroadStrict, s.t.BroadStrict},
		{TierBroadLoose, s.t.BroadLoose},
	} {
		hits, err := s.vectorTier(ctx, r, tier.name, "", tier.threshold)
		if err != nil {
			return s.indexDown(ctx, r, tier.name, err)
		}
		if len(hits) > 0 {
			r.hits = hits
			return stateTruncate, nil
		}
	}
	return stateKeywordFallback, nil
}

// indexDown routes an index failure to the keyword fallback, unless the
// caller went away.
func (s *Service) indexDown(ctx context.Context, r *run, tier string, err error) (state, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return stateDone, fmt.Errorf("%s search: %w", tier, ctxErr)
	}
	s.logger.Warn("Vector index query failed, switching to keyword fallback",
		zap.String("tier", tier),
		zap.Error(err),
	)
	r.indexFailed = true
	r.degraded = true
	return stateKeywordFallback, nil
}

func (s *Service) keywordFallback(ctx context.Context, r *run) (state, error) {
	if !r.q.HasText() {
		if r.indexFailed {
			return stateDone, domain.NewStageError(domain.StageKeywordFallback, domain.ErrIndexUnavailable)
		}
		return stateTruncate, nil
	}

	var out keywordOutcome
	if r.prescan != nil {
		out = <-r.prescan
		r.prescan = nil
	} else {
		out.items, out.err = s.keywordSearch(ctx, r.keywordScan())
	}
	r.tiers = append(r.tiers, TierKeyword)

	if out.err != nil {
		metrics.RetrievalTierTotal.WithLabelValues(TierKeyword, "error").Inc()
		if r.indexFailed {
			return stateDone, domain.NewStageError(domain.StageKeywordFallback,
				fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, out.err))
		}
		s.logger.Warn("Keyword fallback failed", zap.Error(out.err))
		r.degraded = true
		return stateTruncate, nil
	}

	metrics.RetrievalTierTotal.WithLabelValues(TierKeyword, outcome(len(out.items))).Inc()
	r.keyword = out.items
	return stateTruncate, nil
}

func (s *Service) truncate(ctx context.Context, r *run) state {
	if r.prescan != nil {
		select {
		case out := <-r.prescan:
			if out.err != nil {
				s.logger.Warn("Keyword pre-scan failed", zap.Error(out.err))
			} else {
				r.keyword = out.items
			}
		case <-ctx.Done():
		}
		r.prescan = nil
	}

	items := merge(r.hits, r.keyword)
	sortByRelevance(items)
	items = truncateByGap(items, s.t)
	if len(items) > r.q.Limit() {
		items = items[:r.q.Limit()]
	}
	if floor := r.q.MinScore(); floor > 0 {
		kept := items[:0]
		for _, sp := range items {
			if sp.Relevance >= floor {
				kept = append(kept, sp)
			}
		}
		items = kept
	}
	applySort(items, r.q.Sort())

	r.hits = items
	return stateDone
}

// vectorTier runs one KNN query and hydrates and scores its hits.
func (s *Service) vectorTier(
	ctx context.Context, r *run, tier, cat string, threshold float64,
) ([]candidate.ScoredProduct, error) {
	r.tiers = append(r.tiers, tier)

	qctx, cancel := s.indexContext(ctx)
	defer cancel()

	cands, err := s.index.Query(qctx, vectorindex.Search{
		Vector:    r.vec,
		Owner:     r.q.Owner(),
		Category:  cat,
		TopK:      r.fetch,
		Threshold: threshold,
	})
	if err != nil {
		metrics.RetrievalTierTotal.WithLabelValues(tier, "error").Inc()
		return nil, fmt.Errorf("%s query: %w", tier, err)
	}

	if cat != "" {
		verified := cands[:0]
		for _, c := range cands {
			if category.Matches(cat, c.Category) {
				verified = append(verified, c)
			}
		}
		cands = verified
	}

	hits, err := s.hydrate(qctx, r, tier, cands)
	if err != nil {
		metrics.RetrievalTierTotal.WithLabelValues(tier, "error").Inc()
		return nil, err
	}
	metrics.RetrievalTierTotal.WithLabelValues(tier, outcome(len(hits))).Inc()
	return hits, nil
}

// hydrate loads the catalog record of every candidate and scores it.
// Candidates without a record, or owned by someone else, are dropped.
func (s *Service) hydrate(
	ctx context.Context, r *run, tier string, cands []candidate.SearchCandidate,
) ([]candidate.ScoredProduct, error) {
	if len(cands) == 0 {
		return nil, nil
	}
	ids := make([]string, len(cands))
	for i, c := range cands {
		ids[i] = c.ProductID
	}
	products, err := s.catalog.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate candidates: %w", err)
	}

	out := make([]candidate.ScoredProduct, 0, len(cands))
	for _, c := range cands {
		p, ok := products[c.ProductID]
		if !ok {
			s.logger.Warn("Skipping candidate without catalog record",
				zap.String("product_id", c.ProductID),
				zap.String("tier", tier),
			)
			continue
		}
		if p.OwnerID() != r.q.Owner() {
			s.logger.Warn("Skipping candidate of another owner",
				zap.String("product_id", c.ProductID),
			)
			continue
		}

		sem := relevance.Semantic(r.q.Text(), &p)
		out = append(out, candidate.ScoredProduct{
			Product:   p,
			Relevance: relevance.Blend(c.VectorScore, sem, p.InStock()),
			Semantic:  sem,
			Vector:    c.VectorScore,
			Source:    candidate.SourceVector,
			Breakdown: candidate.Breakdown{
				Vector:   c.VectorScore,
				Semantic: sem,
				InStock:  stockBonus(p.InStock()),
				Tier:     tier,
			},
		})
	}
	return out, nil
}

// keywordSearch runs BM25 first and falls back to an owner-scoped scan
// when BM25 fails or finds nothing.
// keywordScan is the read-only input of a keyword search. It is copied out
// of run so the pre-scan goroutine shares no state with the state machine.
type keywordScan struct {
	owner    string
	text     string
	category string
	fetch    int
}

func (r *run) keywordScan() keywordScan {
	return keywordScan{owner: r.q.Owner(), text: r.q.Text(), category: r.category, fetch: r.fetch}
}

func (s *Service) keywordSearch(ctx context.Context, k keywordScan) ([]candidate.ScoredProduct, error) {
	qctx, cancel := s.indexContext(ctx)
	defer cancel()

	products, err := s.catalog.SearchText(qctx, k.owner, k.text, max(k.fetch, scanLimit))
	if err != nil || len(products) == 0 {
		if err != nil {
			s.logger.Debug("Text search failed, scanning owner catalog", zap.Error(err))
		}
		products, err = s.catalog.FindByOwnerAndCategory(qctx, k.owner, k.category, scanLimit)
		if err != nil {
			return nil, fmt.Errorf("keyword scan: %w", err)
		}
	}

	out := make([]candidate.ScoredProduct, 0, len(products))
	for i := range products {
		p := &products[i]
		if p.OwnerID() != k.owner {
			continue
		}
		score, ok := relevance.KeywordScore(k.text, p, k.category)
		if !ok {
			continue
		}
		out = append(out, candidate.ScoredProduct{
			Product:   *p,
			Relevance: relevance.KeywordRelevance(score, p.InStock()),
			Source:    candidate.SourceKeyword,
			Breakdown: candidate.Breakdown{
				Keyword: score,
				InStock: stockBonus(p.InStock()),
				Tier:    TierKeyword,
			},
		})
	}
	return out, nil
}

func (s *Service) indexContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.t.IndexTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.t.IndexTimeout)
}

func stockBonus(inStock bool) float64 {
	if inStock {
		return relevance.InStockBonus
	}
	return 0
}

func outcome(n int) string {
	if n == 0 {
		return "empty"
	}
	return "hit"
}
