// Package math32 provides float32 vector kernels used for norm caching and
// similarity.
package math32

import "math"

// Dot calculates the dot product of two vectors.
func Dot(a, b []float32) float32 {
	var ret float32
	for i := range a {
		ret += a[i] * b[i]
	}
	return ret
}

// Norm calculates the Euclidean (L2) norm of a vector.
func Norm(a []float32) float32 {
	var sum float32
	for _, v := range a {
		sum += v * v
	}
	return float32(math.Sqrt(float64(sum)))
}
