// Package vector provides similarity measures over embedding vectors.
package vector

import "math"

// Cosine returns dot(a, b) / (|a| * |b|). It is 0 when either norm is zero or the
// vectors differ in length, so it never divides by zero.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
