package ollama

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/cloo-solutions/paddock/internal/domain"
)

type MockLLM struct {
	mock.Mock
}

func (m *MockLLM) CreateEmbedding(ctx context.Context, inputTexts []string) ([][]float32, error) {
	args := m.Called(ctx, inputTexts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

// GenerateContent streams the configured chunks through the streaming
// callback carried in options.
func (m *MockLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	args := m.Called(ctx, messages)
	opts := llms.CallOptions{}
	for _, o := range options {
		o(&opts)
	}
	if chunks, ok := args.Get(0).([]string); ok && opts.StreamingFunc != nil {
		for _, c := range chunks {
			if err := opts.StreamingFunc(ctx, []byte(c)); err != nil {
				return nil, err
			}
		}
	}
	if err := args.Error(1); err != nil {
		return nil, err
	}
	return &llms.ContentResponse{}, nil
}

func TestEmbedder_Embed(t *testing.T) {
	llm := new(MockLLM)
	e := &Embedder{llm: llm, dimensions: 2}

	llm.On("CreateEmbedding", mock.Anything, []string{"a", "b"}).Return([][]float32{{1, 2}, {3, 4}}, nil)

	vectors, err := e.Embed(context.Background(), []string{"a", "b"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2}, {3, 4}}, vectors)
	assert.Equal(t, 2, e.Dimension())
}

func TestEmbedder_Embed_Error(t *testing.T) {
	llm := new(MockLLM)
	e := &Embedder{llm: llm, dimensions: 2}

	llm.On("CreateEmbedding", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	_, err := e.Embed(context.Background(), []string{"a"})

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestChatModel_Stream(t *testing.T) {
	llm := new(MockLLM)
	c := &ChatModel{llm: llm}

	llm.On("GenerateContent", mock.Anything, mock.MatchedBy(func(msgs []llms.MessageContent) bool {
		return len(msgs) == 2 && msgs[0].Role == llms.ChatMessageTypeSystem && msgs[1].Role == llms.ChatMessageTypeHuman
	})).Return([]string{"Box", " box"}, nil)

	var got []string
	err := c.Stream(context.Background(), []domain.Message{
		{Role: domain.RoleSystem, Content: "prompt"},
		{Role: domain.RoleUser, Content: "q"},
	}, func(tok string) error {
		got = append(got, tok)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Box", " box"}, got)
}

func TestChatModel_Stream_Error(t *testing.T) {
	llm := new(MockLLM)
	c := &ChatModel{llm: llm}

	llm.On("GenerateContent", mock.Anything, mock.Anything).Return(nil, errors.New("model not found"))

	err := c.Stream(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "q"}}, func(string) error { return nil })

	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
}

func TestConfig_Defaults(t *testing.T) {
	var cfg Config
	cfg.setDefaults()
	assert.Equal(t, DefaultServerURL, cfg.ServerURL)
	assert.Equal(t, DefaultEmbeddingDimensions, cfg.EmbeddingDimensions)
}
