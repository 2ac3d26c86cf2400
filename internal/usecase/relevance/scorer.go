// Package relevance re-ranks retrieval candidates with lexical, fuzzy and
// category signals. Everything here is pure.
package relevance

import (
	"math"
	"strings"

	"github.com/kailas-cloud/shopsearch/internal/domain/category"
	"github.com/kailas-cloud/shopsearch/internal/domain/product"
)

// Exact substring bonuses.
const (
	exactNameBonus     = 0.8
	exactDescBonus     = 0.4
	exactCategoryBonus = 0.3
)

// Fuzzy overlap weights.
const (
	nameOverlapWeight     = 0.6
	descOverlapWeight     = 0.3
	categoryOverlapWeight = 0.2
)

// Category signals.
const (
	affinityWeight       = 0.5
	apparelClothingBonus = 0.3
	headphoneBonus       = 0.5
	wrongCategoryPenalty = 0.5
	broadPenalty         = 0.2
)

// Broad-query scores.
const (
	broadBase          = 0.4
	broadTopLevelBonus = 0.1
	broadDescBonus     = 0.05
	broadCap           = 0.6
	broadDescMinLength = 20
	broadMatchMin      = 0.8
)

// InStockBonus is added on the 0-100 scale.
const InStockBonus = 3

var broadTerms = []string{"products", "items", "goods", "things", "stuff"}

// affinity maps query keywords to the categories (or category labels)
// they favour, with a weight in [0,1].
var affinity = map[string]map[string]float64{
	"pant": {
		"clothing": 1.0, "pants": 1.0, "jeans": 1.0, "trousers": 1.0,
		"joggers": 0.9, "leggings": 0.8, "shorts": 0.7,
	},
	"dress": {"clothing": 1.0, "dress": 1.0, "gown": 1.0, "frock": 1.0},
	"shirt": {"clothing": 1.0, "shirt": 1.0, "top": 1.0, "blouse": 1.0},
	"smartphone": {
		"electronics": 1.0, "phone": 1.0, "smartphone": 1.0, "mobile": 1.0,
	},
	"phone": {
		"electronics": 1.0, "phone": 1.0, "smartphone": 1.0, "mobile": 1.0,
		"camera": 0.8, "webcam": 0.7,
	},
	"electronics": {
		"electronics": 1.0, "tech": 0.9, "gadget": 0.9,
		"smart": 0.8, "digital": 0.8,
	},
	"jewelry": {
		"jewelry": 1.0, "earrings": 1.0, "necklace": 1.0, "bracelet": 1.0,
		"ring": 1.0, "watch": 0.8, "pendant": 1.0, "chain": 0.9, "accessories": 0.7,
	},
}

var apparelKeywords = []string{"pant", "dress", "shirt"}

var headphoneQueryTerms = []string{"headphone", "headphones", "earbuds", "earbud", "earphone"}

var headphoneNameTerms = []string{"headphone", "earbud", "earphone"}

// wrongCategories penalizes products whose category contradicts the query.
var wrongCategories = map[string][]string{
	"pant":       {category.Electronics, category.Home, category.Kitchen, "appliance"},
	"dress":      {category.Electronics, category.Home, category.Kitchen, "appliance"},
	"shirt":      {category.Electronics, category.Home, category.Kitchen, "appliance"},
	"smartphone": {category.Clothing, category.Jewelry, category.Home, category.Kitchen},
	"phone":      {category.Clothing, category.Jewelry, category.Home, category.Kitchen},
}

var broadPenaltyTerms = []string{"electronics", "tech", "gadget"}

// Semantic scores how well p matches query on [0,1], independently of
// vector similarity.
func Semantic(query string, p *product.Product) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return 0
	}
	qWords := Keywords(q)
	if IsBroad(qWords) {
		return broadScore(p)
	}

	name := strings.ToLower(p.Name())
	desc := strings.ToLower(p.Description())
	rawCat := strings.ToLower(strings.TrimSpace(p.Category()))
	cat := category.Normalize(rawCat)

	var score float64
	if strings.Contains(name, q) {
		score += exactNameBonus
	}
	if strings.Contains(desc, q) {
		score += exactDescBonus
	}
	if rawCat != "" && strings.Contains(rawCat, q) {
		score += exactCategoryBonus
	}

	score += bestFuzzyAverage(qWords, words(name)) * nameOverlapWeight
	score += bestFuzzyAverage(qWords, words(desc)) * descOverlapWeight
	score += bestFuzzyAverage(qWords, words(rawCat)) * categoryOverlapWeight

	score += categoryBonus(qWords, name, rawCat, cat)
	score -= categoryPenalty(qWords, rawCat, cat)

	return clamp01(score)
}

// IsBroad reports whether every query word fuzzy-matches a generic
// browsing term such as "products" or "items".
func IsBroad(qWords []string) bool {
	if len(qWords) == 0 {
		return false
	}
	for _, w := range qWords {
		matched := false
		for _, b := range broadTerms {
			if Fuzzy(w, b) >= broadMatchMin {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func broadScore(p *product.Product) float64 {
	s := broadBase
	if category.IsTopLevel(p.Category()) {
		s += broadTopLevelBonus
	}
	if len(p.Description()) > broadDescMinLength {
		s += broadDescBonus
	}
	return math.Min(s, broadCap)
}

func categoryBonus(qWords []string, name, rawCat, cat string) float64 {
	if hasAny(qWords, headphoneQueryTerms...) {
		if cat == category.Electronics && containsAny(name, headphoneNameTerms...) {
			return headphoneBonus
		}
		return 0
	}

	var bonus float64
	for keyword, cats := range affinity {
		if !hasWord(qWords, keyword) {
			continue
		}
		w, ok := cats[cat]
		if !ok {
			w, ok = cats[rawCat]
		}
		if ok {
			bonus += w * affinityWeight
		}
	}
	if cat == category.Clothing && hasAny(qWords, apparelKeywords...) {
		bonus += apparelClothingBonus
	}
	return bonus
}

func categoryPenalty(qWords []string, rawCat, cat string) float64 {
	weight := wrongCategoryPenalty
	if hasAny(qWords, broadPenaltyTerms...) {
		weight = broadPenalty
	}
	var penalty float64
	for keyword, wrong := range wrongCategories {
		if !hasWord(qWords, keyword) {
			continue
		}
		for _, w := range wrong {
			if cat == w || rawCat == w {
				penalty += weight
				break
			}
		}
	}
	return penalty
}

// Blend combines vector similarity and semantic score on the 0-100 scale,
// with a small in-stock bonus. It is non-decreasing in both inputs.
func Blend(vectorScore, semantic float64, inStock bool) float64 {
	s := 100 * clamp01(0.5*clamp01(vectorScore)+0.5*clamp01(semantic))
	if inStock {
		s += InStockBonus
	}
	return math.Min(s, 100)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func clamp01(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}
