package domain

import (
	"fmt"
	"strings"
)

// Metric is the distance function a vector collection ranks by.
type Metric string

const (
	MetricCosine     Metric = "cosine"
	MetricDotProduct Metric = "dot_product"
	MetricEuclidean  Metric = "euclidean"
)

// ParseMetric parses a metric name. Empty input defaults to cosine.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cosine":
		return MetricCosine, nil
	case "dot_product", "dot", "ip":
		return MetricDotProduct, nil
	case "euclidean", "l2":
		return MetricEuclidean, nil
	}
	return "", fmt.Errorf("unknown similarity metric: %q", s)
}

// CollectionInfo describes a vector collection.
type CollectionInfo struct {
	Name      string
	Dimension int
	Metric    Metric
	Count     int64
}
