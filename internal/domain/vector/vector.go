// Package vector has the float32 vector math shared by embedding and ranking.
package vector

import "math"

// Norm returns the L2 norm of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// IsZero reports whether v is empty or all zeros.
func IsZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Normalize returns v scaled to unit length. A zero vector is returned
// unchanged (as a copy).
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	n := Norm(v)
	if n == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out
}

// Zero returns a zero vector of dimension dim.
func Zero(dim int) []float32 {
	return make([]float32, dim)
}

// Combine returns normalize(wa*a + wb*b). A weighted sum of two unit
// vectors is not unit length, so the result is always re-normalized.
// If one side is zero or missing the other is returned normalized.
func Combine(a []float32, wa float64, b []float32, wb float64) []float32 {
	switch {
	case IsZero(a) && IsZero(b):
		return Zero(max(len(a), len(b)))
	case IsZero(b):
		return Normalize(a)
	case IsZero(a):
		return Normalize(b)
	}
	n := min(len(a), len(b))
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = float32(wa*float64(a[i]) + wb*float64(b[i]))
	}
	return Normalize(out)
}

// Cosine returns the cosine similarity of a and b, 0 when either is zero
// or the dimensions differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	na, nb := Norm(a), Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (na * nb)
}
