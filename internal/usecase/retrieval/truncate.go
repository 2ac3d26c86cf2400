package retrieval

import (
	"sort"

	"github.com/kailas-cloud/shopsearch/internal/domain/candidate"
	"github.com/kailas-cloud/shopsearch/internal/domain/query"
)

// gapWindow is how many leading results are inspected for a score cliff.
const gapWindow = 5

// sortByRelevance orders by relevance desc, vector hits before keyword
// hits on equal scores, then by product ID.
func sortByRelevance(items []candidate.ScoredProduct) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := &items[i], &items[j]
		if a.Relevance != b.Relevance {
			return a.Relevance > b.Relevance
		}
		if a.Source != b.Source {
			return a.Source == candidate.SourceVector
		}
		return a.Product.ID() < b.Product.ID()
	})
}

// truncateByGap expects items sorted by relevance desc. If the largest
// adjacent drop among the first five exceeds the cutoff, everything after
// the drop goes. Otherwise items scoring at least MinKeep stay, or the top
// FallbackKeep when none does.
func truncateByGap(items []candidate.ScoredProduct, t Thresholds) []candidate.ScoredProduct {
	if len(items) <= 1 {
		return items
	}

	window := min(gapWindow, len(items))
	cut, widest := -1, 0.0
	for i := 0; i < window-1; i++ {
		gap := items[i].Relevance - items[i+1].Relevance
		if gap > widest {
			cut, widest = i, gap
		}
	}
	if widest > t.GapCutoff {
		return items[:cut+1]
	}

	keep := 0
	for keep < len(items) && items[keep].Relevance >= t.MinKeep {
		keep++
	}
	if keep == 0 {
		keep = min(t.FallbackKeep, len(items))
	}
	return items[:keep]
}

// applySort reorders the truncated list for presentation.
func applySort(items []candidate.ScoredProduct, order query.SortOrder) {
	switch order {
	case query.SortPriceAsc:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Product.Price() < items[j].Product.Price()
		})
	case query.SortPriceDesc:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Product.Price() > items[j].Product.Price()
		})
	case query.SortNewest:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Product.CreatedAt().After(items[j].Product.CreatedAt())
		})
	}
}

// merge de-dupes by product ID. Vector-derived entries win over keyword
// entries for the same product.
func merge(vectorHits, keywordHits []candidate.ScoredProduct) []candidate.ScoredProduct {
	out := make([]candidate.ScoredProduct, 0, len(vectorHits)+len(keywordHits))
	seen := make(map[string]bool, len(vectorHits))
	for _, sp := range vectorHits {
		if seen[sp.Product.ID()] {
			continue
		}
		seen[sp.Product.ID()] = true
		out = append(out, sp)
	}
	for _, sp := range keywordHits {
		if seen[sp.Product.ID()] {
			continue
		}
		seen[sp.Product.ID()] = true
		out = append(out, sp)
	}
	return out
}
