package gemini

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/cloo-solutions/paddock/internal/domain"
)

type MockModelsAPI struct {
	mock.Mock
}

func (m *MockModelsAPI) EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	args := m.Called(ctx, model, contents, config)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*genai.EmbedContentResponse), args.Error(1)
}

func (m *MockModelsAPI) GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	args := m.Called(ctx, model, contents, config)
	chunks, _ := args.Get(0).([]string)
	streamErr := args.Error(1)
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, c := range chunks {
			resp := &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(c, genai.RoleModel)}},
			}
			if !yield(resp, nil) {
				return
			}
		}
		if streamErr != nil {
			yield(nil, streamErr)
		}
	}
}

func TestClient_Embed(t *testing.T) {
	api := new(MockModelsAPI)
	client := newClient(api, Config{EmbeddingDimensions: 3})

	api.On("EmbedContent", mock.Anything, DefaultEmbeddingModel, mock.MatchedBy(func(c []*genai.Content) bool {
		return len(c) == 2 && c[0].Parts[0].Text == "Imola" && c[1].Parts[0].Text == "Suzuka"
	}), mock.MatchedBy(func(cfg *genai.EmbedContentConfig) bool {
		return cfg.OutputDimensionality != nil && *cfg.OutputDimensionality == 3
	})).Return(&genai.EmbedContentResponse{Embeddings: []*genai.ContentEmbedding{
		{Values: []float32{1, 2, 3}},
		{Values: []float32{4, 5, 6}},
	}}, nil)

	vectors, err := client.Embed(context.Background(), []string{"Imola", "Suzuka"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2, 3}, {4, 5, 6}}, vectors)
	assert.Equal(t, 3, client.Dimension())
}

func TestClient_Embed_Error(t *testing.T) {
	api := new(MockModelsAPI)
	client := newClient(api, Config{})

	api.On("EmbedContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("quota exceeded"))

	_, err := client.Embed(context.Background(), []string{"x"})

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestClient_Embed_CountMismatch(t *testing.T) {
	api := new(MockModelsAPI)
	client := newClient(api, Config{})

	api.On("EmbedContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&genai.EmbedContentResponse{Embeddings: []*genai.ContentEmbedding{{Values: []float32{1}}}}, nil)

	_, err := client.Embed(context.Background(), []string{"a", "b"})

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestClient_Stream(t *testing.T) {
	api := new(MockModelsAPI)
	client := newClient(api, Config{})

	msgs := []domain.Message{
		{Role: domain.RoleSystem, Content: "You are an F1 assistant."},
		{Role: domain.RoleUser, Content: "hi"},
		{Role: domain.RoleAssistant, Content: "hello"},
		{Role: domain.RoleUser, Content: "who won?"},
	}

	api.On("GenerateContentStream", mock.Anything, DefaultChatModel, mock.MatchedBy(func(c []*genai.Content) bool {
		return len(c) == 3 && c[1].Role == string(genai.RoleModel) && c[2].Parts[0].Text == "who won?"
	}), mock.MatchedBy(func(cfg *genai.GenerateContentConfig) bool {
		return cfg != nil && cfg.SystemInstruction.Parts[0].Text == "You are an F1 assistant."
	})).Return([]string{"Max", " won."}, nil)

	var got []string
	err := client.Stream(context.Background(), msgs, func(tok string) error {
		got = append(got, tok)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Max", " won."}, got)
}

func TestClient_Stream_Error(t *testing.T) {
	api := new(MockModelsAPI)
	client := newClient(api, Config{})

	api.On("GenerateContentStream", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]string{"partial"}, errors.New("stream reset"))

	var got []string
	err := client.Stream(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "q"}}, func(tok string) error {
		got = append(got, tok)
		return nil
	})

	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
	assert.Equal(t, []string{"partial"}, got)
}

func TestToContents_NoSystem(t *testing.T) {
	contents, system := toContents([]domain.Message{{Role: domain.RoleUser, Content: "q"}})
	assert.Len(t, contents, 1)
	assert.Empty(t, system)
}
