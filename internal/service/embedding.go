package service

import (
	"context"
	"fmt"
	"log"

	"github.com/cloo-solutions/paddock/internal/domain"
)

// Embedder converts texts into fixed-dimension vectors, one per input, same order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Pinger is implemented by embedders that can report reachability without
// embedding anything.
type Pinger interface {
	Ping(ctx context.Context) error
}

// VectorStore is the persistence contract for embedded chunks.
type VectorStore interface {
	CreateCollection(ctx context.Context, name string, dimension int, metric domain.Metric) (bool, error)
	Insert(ctx context.Context, rec domain.StoredRecord) error
	Search(ctx context.Context, vector []float32, k int) ([]domain.SearchHit, error)
	Info(ctx context.Context) (domain.CollectionInfo, error)
}

// ChatModel streams a completion for an ordered message list, invoking
// onToken for every text fragment as it arrives.
type ChatModel interface {
	Stream(ctx context.Context, msgs []domain.Message, onToken func(string) error) error
}

const dimensionProbeText = "dimension probe"

// ValidateDimension embeds a probe text once and checks the vector length
// against both the embedder's declared dimension and the collection's.
func ValidateDimension(ctx context.Context, embedder Embedder, store VectorStore) error {
	info, err := store.Info(ctx)
	if err != nil {
		return err
	}

	vectors, err := embedder.Embed(ctx, []string{dimensionProbeText})
	if err != nil {
		return fmt.Errorf("failed to embed dimension probe: %w", err)
	}
	if len(vectors) != 1 {
		return domain.EmbeddingUnavailable(fmt.Errorf("expected 1 probe vector, got %d", len(vectors)))
	}

	got := len(vectors[0])
	if got != embedder.Dimension() {
		return domain.DimensionMismatch(embedder.Dimension(), got)
	}
	if got != info.Dimension {
		return domain.DimensionMismatch(info.Dimension, got)
	}

	log.Printf("embedding dimension %d matches collection %q", got, info.Name)
	return nil
}

// CheckVectors verifies a provider response has one vector per input.
func CheckVectors(inputs int, vectors [][]float32) error {
	if len(vectors) != inputs {
		return domain.EmbeddingUnavailable(fmt.Errorf("expected %d embeddings, got %d", inputs, len(vectors)))
	}
	return nil
}
