package relevance

import "strings"

// Fuzzy scores.
const (
	scoreOneTransposition  = 0.85
	scoreTwoTranspositions = 0.7
	scoreContainment       = 0.8
	scoreKnownTypo         = 0.8
	minDistanceSimilarity  = 0.6
	maxLengthDelta         = 2
	minContainmentLength   = 3
)

// knownTypos maps frequent misspellings to the catalog word.
var knownTypos = map[string]string{
	"jeens":     "jeans",
	"jens":      "jeans",
	"shrit":     "shirt",
	"tshirt":    "t-shirt",
	"dres":      "dress",
	"neckless":  "necklace",
	"necklase":  "necklace",
	"braclet":   "bracelet",
	"earing":    "earring",
	"earings":   "earrings",
	"hedphones": "headphones",
	"headfones": "headphones",
	"laptob":    "laptop",
	"fone":      "phone",
	"smartfone": "smartphone",
	"jewlery":   "jewelry",
	"jewelery":  "jewelry",
	"jwelry":    "jewelry",
}

// lookAlike pairs are substitutions that cost half an edit.
var lookAlike = map[[2]byte]bool{
	{'c', 'k'}: true, {'s', 'z'}: true, {'i', 'y'}: true, {'u', 'v'}: true,
	{'m', 'n'}: true, {'0', 'o'}: true, {'1', 'l'}: true, {'f', 'v'}: true,
}

// Fuzzy returns a similarity in [0,1] between two words: 1 for an exact
// match, partial credit for transpositions, prefix/suffix containment,
// known typos and near-miss spellings, 0 when lengths differ by more
// than two characters or nothing applies.
func Fuzzy(a, b string) float64 {
	a, b = strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	if abs(len(a)-len(b)) > maxLengthDelta {
		return 0
	}

	switch transpositions(a, b) {
	case 1:
		return scoreOneTransposition
	case 2:
		return scoreTwoTranspositions
	}

	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) >= minContainmentLength && (strings.HasPrefix(long, short) || strings.HasSuffix(long, short)) {
		return scoreContainment
	}

	if knownTypos[a] == b || knownTypos[b] == a {
		return scoreKnownTypo
	}

	if sim := weightedSimilarity(a, b); sim >= minDistanceSimilarity {
		return sim
	}
	return 0
}

// transpositions counts adjacent swaps that turn a into b, or returns 0
// when the words differ in any other way.
func transpositions(a, b string) int {
	if len(a) != len(b) {
		return 0
	}
	n := 0
	for i := 0; i < len(a); i++ {
		if a[i] == b[i] {
			continue
		}
		if i+1 < len(a) && a[i] == b[i+1] && a[i+1] == b[i] {
			n++
			i++
			continue
		}
		return 0
	}
	return n
}

// weightedSimilarity is 1 - editDistance/maxLen, where vowel-for-vowel
// and look-alike substitutions cost 0.5.
func weightedSimilarity(a, b string) float64 {
	prev := make([]float64, len(b)+1)
	cur := make([]float64, len(b)+1)
	for j := range prev {
		prev[j] = float64(j)
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = float64(i)
		for j := 1; j <= len(b); j++ {
			sub := prev[j-1] + substitutionCost(a[i-1], b[j-1])
			del := prev[j] + 1
			ins := cur[j-1] + 1
			cur[j] = min(sub, del, ins)
		}
		prev, cur = cur, prev
	}
	return 1 - prev[len(b)]/float64(max(len(a), len(b)))
}

func substitutionCost(x, y byte) float64 {
	switch {
	case x == y:
		return 0
	case isVowel(x) && isVowel(y):
		return 0.5
	case lookAlike[[2]byte{x, y}] || lookAlike[[2]byte{y, x}]:
		return 0.5
	}
	return 1
}

func isVowel(c byte) bool {
	return strings.IndexByte("aeiou", c) >= 0
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
