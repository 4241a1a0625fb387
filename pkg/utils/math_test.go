package utils

import (
	"math"
	"testing"
)

func TestNormalizeL2(t *testing.T) {
	x := []float32{3, 4}
	if !NormalizeL2(x, 1e-6) {
		t.Fatal("expected normalization")
	}
	if math.Abs(float64(x[0])-0.6) > 1e-6 || math.Abs(float64(x[1])-0.8) > 1e-6 {
		t.Errorf("got %v", x)
	}
	if n := L2Norm(x); math.Abs(n-1) > 1e-6 {
		t.Errorf("norm = %f", n)
	}

	zero := []float32{0, 0, 0}
	if NormalizeL2(zero, 1e-6) {
		t.Error("zero vector must not be normalized")
	}

	tiny := []float32{1e-8, 0}
	if NormalizeL2(tiny, 1e-6) {
		t.Error("vector below minNorm must be left unchanged")
	}
	if tiny[0] != 1e-8 {
		t.Errorf("tiny changed: %v", tiny)
	}
}
