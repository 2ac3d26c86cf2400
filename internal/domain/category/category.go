// Package category holds the catalog's top-level categories and the
// synonym table used to match them case-insensitively.
package category

import "strings"

// Top-level catalog categories, in declaration order.
const (
	Jewelry     = "jewelry"
	Clothing    = "clothing"
	Electronics = "electronics"
	Home        = "home"
	Kitchen     = "kitchen"
)

// All lists the canonical categories in declaration order. Classifier
// ties are broken by this order.
var All = []string{Jewelry, Clothing, Electronics, Home, Kitchen}

var synonyms = map[string][]string{
	Jewelry:     {"jewellery", "jewellry"},
	Clothing:    {"clothes", "apparel"},
	Electronics: {"electronic"},
	Home:        {"household"},
	Kitchen:     {"kitchenware"},
}

var canonical = func() map[string]string {
	m := make(map[string]string)
	for c, alts := range synonyms {
		m[c] = c
		for _, a := range alts {
			m[a] = c
		}
	}
	return m
}()

// Normalize lowercases and trims c and maps known synonyms to their
// canonical name. Unknown categories pass through lowercased.
func Normalize(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	if v, ok := canonical[c]; ok {
		return v
	}
	return c
}

// IsTopLevel reports whether c normalizes to one of All.
func IsTopLevel(c string) bool {
	_, ok := synonyms[Normalize(c)]
	return ok
}

// Variants returns the canonical form of c followed by its synonyms,
// all lowercase. Empty input yields nil.
func Variants(c string) []string {
	n := Normalize(c)
	if n == "" {
		return nil
	}
	return append([]string{n}, synonyms[n]...)
}

// Matches reports whether two category labels denote the same category.
// An empty label never matches.
func Matches(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	return na != "" && na == nb
}
