package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cloo-solutions/paddock/internal/domain"
)

func TestHNSWSpace(t *testing.T) {
	assert.Equal(t, "cosine", hnswSpace(domain.MetricCosine))
	assert.Equal(t, "ip", hnswSpace(domain.MetricDotProduct))
	assert.Equal(t, "l2", hnswSpace(domain.MetricEuclidean))
}

func TestChromaScore(t *testing.T) {
	assert.InDelta(t, 0.8, chromaScore(domain.MetricCosine, 0.2), 1e-9)
	assert.InDelta(t, 3.0, chromaScore(domain.MetricDotProduct, -2.0), 1e-9)
	assert.InDelta(t, 1.0/3.0, chromaScore(domain.MetricEuclidean, 4.0), 1e-9)
	assert.InDelta(t, 1.0, chromaScore(domain.MetricEuclidean, -0.0001), 1e-9)
}
