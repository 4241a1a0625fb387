package utils

import "math"

// NormalizeL2 scales x in place to unit L2 norm and reports whether it did.
// When the norm is below minNorm the slice is left unchanged.
func NormalizeL2(x []float32, minNorm float64) bool {
	norm := L2Norm(x)
	if norm == 0 || norm < minNorm {
		return false
	}
	inv := 1.0 / norm
	for i := range x {
		x[i] = float32(float64(x[i]) * inv)
	}
	return true
}

// L2Norm returns the Euclidean norm of x.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}
