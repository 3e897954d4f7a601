package vectorstore

import (
	"math"

	"github.com/cloo-solutions/paddock/internal/domain"
)

// Score computes a higher-is-closer similarity between a and b. Vectors of
// different length score as -Inf.
func Score(metric domain.Metric, a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(-1)
	}
	switch metric {
	case domain.MetricDotProduct:
		return dot(a, b)
	case domain.MetricEuclidean:
		var sum float64
		for i := range a {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return 1.0 / (1.0 + math.Sqrt(sum))
	default:
		na, nb := norm(a), norm(b)
		// a zero vector has no direction
		if na == 0 || nb == 0 {
			return 0
		}
		return dot(a, b) / (na * nb)
	}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(a []float32) float64 {
	return math.Sqrt(dot(a, a))
}
