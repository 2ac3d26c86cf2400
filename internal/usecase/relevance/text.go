package relevance

import (
	"strings"
	"unicode"
)

// stopWords are dropped before word-level matching.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "i": true, "my": true, "me": true, "show": true,
	"find": true, "all": true, "some": true, "please": true, "looking": true,
	"want": true, "need": true, "any": true,
}

// words lowercases text and splits it on anything but letters, digits and
// inner hyphens.
func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
}

// Keywords returns the meaningful words of a query. A query made only of
// stop words keeps all of its words.
func Keywords(text string) []string {
	all := words(text)
	out := make([]string, 0, len(all))
	for _, w := range all {
		if !stopWords[w] {
			out = append(out, w)
		}
	}
	if len(out) == 0 {
		return all
	}
	return out
}

// hasWord reports whether ws contains term, allowing a plural "s"/"es".
// Multi-word terms must appear as consecutive words.
func hasWord(ws []string, term string) bool {
	parts := strings.Fields(term)
	if len(parts) == 0 || len(parts) > len(ws) {
		return false
	}
	for i := 0; i+len(parts) <= len(ws); i++ {
		match := true
		for j, p := range parts {
			w := ws[i+j]
			if w != p && w != p+"s" && w != p+"es" {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func hasAny(ws []string, terms ...string) bool {
	for _, t := range terms {
		if hasWord(ws, t) {
			return true
		}
	}
	return false
}

// bestFuzzyAverage averages, over query words, the best Fuzzy score
// against any of target's words.
func bestFuzzyAverage(query, target []string) float64 {
	if len(query) == 0 || len(target) == 0 {
		return 0
	}
	var total float64
	for _, q := range query {
		best := 0.0
		for _, t := range target {
			if s := Fuzzy(q, t); s > best {
				best = s
				if best == 1 {
					break
				}
			}
		}
		total += best
	}
	return total / float64(len(query))
}
