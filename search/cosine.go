package search

import "math"

// Cosine returns the cosine similarity of a and b, accumulated in float64.
// Empty, length-mismatched or zero-magnitude inputs score exactly 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	denom := math.Sqrt(na) * math.Sqrt(nb)
	if denom == 0 {
		return 0
	}
	s := dot / denom
	// Rounding can push a parallel pair slightly past 1.
	return math.Max(-1, math.Min(1, s))
}
