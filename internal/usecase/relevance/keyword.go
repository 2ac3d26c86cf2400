package relevance

import (
	"math"
	"strings"

	"github.com/kailas-cloud/shopsearch/internal/domain/category"
	"github.com/kailas-cloud/shopsearch/internal/domain/product"
)

const (
	kwNameSubstring = 0.8
	kwNameWord      = 0.3
	kwDescWord      = 0.2
	kwCategory      = 0.1
	kwFloor         = 0.1
)

// KeywordScore is the lexical score used by the keyword fallback: exact
// name substring, per-word name and description hits, and a category
// match. ok is false when nothing matched, and such products are dropped.
func KeywordScore(query string, p *product.Product, cat string) (score float64, ok bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	qWords := Keywords(q)
	name := strings.ToLower(p.Name())
	nameWords := words(name)
	descWords := words(p.Description())

	if q != "" && strings.Contains(name, q) {
		score += kwNameSubstring
	}
	for _, w := range qWords {
		if hasWord(nameWords, w) {
			score += kwNameWord
		}
		if hasWord(descWords, w) {
			score += kwDescWord
		}
	}
	if cat != "" && category.Matches(cat, p.Category()) {
		score += kwCategory
	}

	if score == 0 {
		return 0, false
	}
	return math.Max(kwFloor, math.Min(1, score)), true
}

// KeywordRelevance lifts a keyword score to the 0-100 scale.
func KeywordRelevance(score float64, inStock bool) float64 {
	s := 100 * clamp01(score)
	if inStock {
		s += InStockBonus
	}
	return math.Min(s, 100)
}
