// Package classifier maps free-text queries to a top-level catalog category
// using weighted keyword tiers.
package classifier

import (
	"strings"
	"unicode"

	"github.com/kailas-cloud/shopsearch/internal/domain/category"
)

// Tier weights.
const (
	weightPrimary   = 3
	weightType      = 2
	weightAttribute = 1

	// MinScore is the lowest total that yields a category.
	MinScore = 2
)

type tiers struct {
	primary    []string
	types      []string
	attributes []string // attributes, brands and materials
}

var keywords = map[string]tiers{
	category.Jewelry: {
		primary:    []string{"jewelry", "jewellery", "accessory", "accessories"},
		types:      []string{"necklace", "pendant", "chain", "ring", "earring", "bracelet", "watch", "anklet", "brooch", "bangle"},
		attributes: []string{"gold", "silver", "diamond", "pearl", "platinum", "rose gold", "white gold", "yellow gold", "sterling"},
	},
	category.Clothing: {
		primary:    []string{"clothes", "clothing", "dress", "apparel", "wear", "outfit", "fashion"},
		types:      []string{"shirt", "pants", "jeans", "jacket", "coat", "skirt", "blouse", "sweater", "top", "bottom", "trousers", "t-shirt"},
		attributes: []string{"casual", "formal", "summer", "winter", "men", "women", "unisex", "kids", "baby"},
	},
	category.Electronics: {
		primary:    []string{"electronics", "tech", "gadget", "device", "digital", "technology"},
		types:      []string{"phone", "smartphone", "laptop", "computer", "tablet", "tv", "camera", "headphones", "speaker", "monitor"},
		attributes: []string{"apple", "samsung", "sony", "lg", "dell", "hp", "lenovo", "xiaomi", "google", "wireless", "bluetooth"},
	},
	category.Home: {
		primary:    []string{"home", "household", "furniture"},
		types:      []string{"chair", "table", "sofa", "bed", "lamp", "decor"},
		attributes: []string{"interior"},
	},
	category.Kitchen: {
		primary:    []string{"kitchen", "cookware", "cooking"},
		types:      []string{"utensils", "appliances", "refrigerator", "microwave", "blender"},
		attributes: []string{"food"},
	},
}

// jewelryFastPath terms classify a query as jewelry on their own.
var jewelryFastPath = []string{
	"jewelry", "jewellery", "necklace", "ring", "earring", "bracelet",
	"pendant", "chain", "bangle", "anklet", "brooch", "gemstone",
	"diamond", "gold", "silver", "platinum", "pearl", "crystal",
}

// Detect returns the category of text, or "" when no category scores at
// least MinScore. Jewelry fast-path terms win outright; otherwise ties go
// to the category declared first in category.All.
func Detect(text string) string {
	words := Tokenize(text)
	if len(words) == 0 {
		return ""
	}

	for _, term := range jewelryFastPath {
		if ContainsTerm(words, term) {
			return category.Jewelry
		}
	}

	best, bestScore := "", 0
	for _, c := range category.All {
		s := Score(words, c)
		if s > bestScore {
			best, bestScore = c, s
		}
	}
	if bestScore < MinScore {
		return ""
	}
	return best
}

// IsJewelryQuery reports whether any jewelry fast-path term occurs in text.
func IsJewelryQuery(text string) bool {
	words := Tokenize(text)
	for _, term := range jewelryFastPath {
		if ContainsTerm(words, term) {
			return true
		}
	}
	return false
}

// Score sums the tier weights of every keyword of cat found in words.
func Score(words []string, cat string) int {
	t, ok := keywords[cat]
	if !ok {
		return 0
	}
	score := 0
	for _, group := range []struct {
		terms  []string
		weight int
	}{
		{t.primary, weightPrimary},
		{t.types, weightType},
		{t.attributes, weightAttribute},
	} {
		for _, term := range group.terms {
			if ContainsTerm(words, term) {
				score += group.weight
			}
		}
	}
	return score
}

// Tokenize lowercases text and splits it into words. Hyphens inside a
// word are kept so "t-shirt" stays one token.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
}

// ContainsTerm matches a single or multi-word term at word boundaries.
// The last word may carry a plural "s" or "es".
func ContainsTerm(words []string, term string) bool {
	parts := strings.Fields(term)
	if len(parts) == 0 || len(parts) > len(words) {
		return false
	}
	last := len(parts) - 1
	for i := 0; i+len(parts) <= len(words); i++ {
		ok := true
		for j, p := range parts {
			w := words[i+j]
			if j == last {
				ok = pluralOf(w, p)
			} else {
				ok = w == p
			}
			if !ok {
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func pluralOf(word, term string) bool {
	return word == term || word == term+"s" || word == term+"es"
}
