package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/cloo-solutions/paddock/internal/domain"
)

// MockEmbedder is a mock implementation of Embedder
type MockEmbedder struct {
	mock.Mock
	dim int
}

func (m *MockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *MockEmbedder) Dimension() int {
	return m.dim
}

// MockPingEmbedder is an Embedder that also implements Pinger
type MockPingEmbedder struct {
	MockEmbedder
}

func (m *MockPingEmbedder) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockVectorStore is a mock implementation of VectorStore
type MockVectorStore struct {
	mock.Mock
}

func (m *MockVectorStore) CreateCollection(ctx context.Context, name string, dimension int, metric domain.Metric) (bool, error) {
	args := m.Called(ctx, name, dimension, metric)
	return args.Bool(0), args.Error(1)
}

func (m *MockVectorStore) Insert(ctx context.Context, rec domain.StoredRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockVectorStore) Search(ctx context.Context, vector []float32, k int) ([]domain.SearchHit, error) {
	args := m.Called(ctx, vector, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SearchHit), args.Error(1)
}

func (m *MockVectorStore) Info(ctx context.Context) (domain.CollectionInfo, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.CollectionInfo), args.Error(1)
}

// MockChatModel is a mock implementation of ChatModel. Tokens configured
// with Return are delivered to onToken before the error is returned.
type MockChatModel struct {
	mock.Mock
}

func (m *MockChatModel) Stream(ctx context.Context, msgs []domain.Message, onToken func(string) error) error {
	args := m.Called(ctx, msgs)
	if tokens, ok := args.Get(0).([]string); ok {
		for _, t := range tokens {
			if err := onToken(t); err != nil {
				return err
			}
		}
	}
	return args.Error(1)
}

// MockScraper is a mock implementation of Scraper
type MockScraper struct {
	mock.Mock
}

func (m *MockScraper) Scrape(ctx context.Context, url string) (domain.Document, error) {
	args := m.Called(ctx, url)
	return args.Get(0).(domain.Document), args.Error(1)
}

// MockRunRecorder is a mock implementation of RunRecorder
type MockRunRecorder struct {
	mock.Mock
}

func (m *MockRunRecorder) Record(ctx context.Context, report *domain.IngestReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func vectorsOf(n, dim int, fill float32) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		v := make([]float32, dim)
		for j := range v {
			v[j] = fill
		}
		out[i] = v
	}
	return out
}
