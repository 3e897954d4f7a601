package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/paddock/internal/domain"
)

// MockEmbeddingAPI is a mock for the embeddings endpoint
type MockEmbeddingAPI struct {
	mock.Mock
}

func (m *MockEmbeddingAPI) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

// MockChatAPI is a mock for the chat completions endpoint
type MockChatAPI struct {
	mock.Mock
}

func (m *MockChatAPI) StreamChat(ctx context.Context, msgs []openai.ChatCompletionMessage, onDelta func(string) error) error {
	args := m.Called(ctx, msgs)
	if deltas, ok := args.Get(0).([]string); ok {
		for _, d := range deltas {
			if err := onDelta(d); err != nil {
				return err
			}
		}
	}
	return args.Error(1)
}

func TestClient_Embed_Success(t *testing.T) {
	mockAPI := new(MockEmbeddingAPI)
	client := &Client{api: mockAPI, dimensions: 3}

	ctx := context.Background()
	texts := []string{"Monaco", "Monza"}
	expected := [][]float32{{0.1, 0.2, 0.3}, {0.4, 0.5, 0.6}}

	mockAPI.On("CreateEmbeddings", ctx, texts).Return(expected, nil)

	vectors, err := client.Embed(ctx, texts)

	assert.NoError(t, err)
	assert.Equal(t, expected, vectors)
	assert.Equal(t, 3, client.Dimension())
	mockAPI.AssertExpectations(t)
}

func TestClient_Embed_EmptyInput(t *testing.T) {
	mockAPI := new(MockEmbeddingAPI)
	client := &Client{api: mockAPI}

	vectors, err := client.Embed(context.Background(), nil)

	assert.NoError(t, err)
	assert.Empty(t, vectors)
	mockAPI.AssertNotCalled(t, "CreateEmbeddings", mock.Anything, mock.Anything)
}

func TestClient_Embed_APIError(t *testing.T) {
	mockAPI := new(MockEmbeddingAPI)
	client := &Client{api: mockAPI}

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, []string{"x"}).Return(nil, errors.New("API rate limit exceeded"))

	vectors, err := client.Embed(ctx, []string{"x"})

	assert.Nil(t, vectors)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "failed to create embeddings")
}

func TestClient_Embed_CountMismatch(t *testing.T) {
	mockAPI := new(MockEmbeddingAPI)
	client := &Client{api: mockAPI}

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, []string{"a", "b"}).Return([][]float32{{1}}, nil)

	_, err := client.Embed(ctx, []string{"a", "b"})

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestNewClient(t *testing.T) {
	client := NewClient("test-api-key")

	assert.NotNil(t, client)
	assert.NotNil(t, client.api)
	assert.Equal(t, DefaultEmbeddingDimensions, client.Dimension())
}

func TestChatClient_Stream(t *testing.T) {
	mockAPI := new(MockChatAPI)
	client := &ChatClient{api: mockAPI}

	msgs := []domain.Message{
		{Role: domain.RoleSystem, Content: "prompt"},
		{Role: domain.RoleUser, Content: "q"},
		{Role: domain.RoleAssistant, Content: "a"},
	}
	want := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: "prompt"},
		{Role: openai.ChatMessageRoleUser, Content: "q"},
		{Role: openai.ChatMessageRoleAssistant, Content: "a"},
	}
	mockAPI.On("StreamChat", mock.Anything, want).Return([]string{"Hel", "lo"}, nil)

	var got []string
	err := client.Stream(context.Background(), msgs, func(tok string) error {
		got = append(got, tok)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo"}, got)
}

func TestChatClient_Stream_Error(t *testing.T) {
	mockAPI := new(MockChatAPI)
	client := &ChatClient{api: mockAPI}

	mockAPI.On("StreamChat", mock.Anything, mock.Anything).Return(nil, errors.New("status code: 500"))

	err := client.Stream(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "q"}}, func(string) error { return nil })

	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
}

func TestChatClient_Stream_ConsumerError(t *testing.T) {
	mockAPI := new(MockChatAPI)
	client := &ChatClient{api: mockAPI}

	mockAPI.On("StreamChat", mock.Anything, mock.Anything).Return([]string{"a", "b"}, nil)

	gone := errors.New("client gone")
	err := client.Stream(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "q"}}, func(string) error { return gone })

	assert.Equal(t, gone, err)
}

func TestOpenAIAdapter_CreateEmbeddings_ReordersByIndex(t *testing.T) {
	var gotReq openai.EmbeddingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object":"list","model":"text-embedding-3-small","data":[
			{"object":"embedding","index":1,"embedding":[0.4,0.5]},
			{"object":"embedding","index":0,"embedding":[0.1,0.2]}
		]}`)
	}))
	defer srv.Close()

	adapter := NewOpenAIAdapter(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1/", EmbeddingDimensions: 2})

	vectors, err := adapter.CreateEmbeddings(context.Background(), []string{"first", "second"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.1, 0.2}, {0.4, 0.5}}, vectors)
	assert.Equal(t, 2, gotReq.Dimensions)
	assert.Equal(t, DefaultEmbeddingModel, gotReq.Model)
}

func TestOpenAIAdapter_CreateEmbeddings_NoDimensionsForLegacyModel(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[{"index":0,"embedding":[1,2,3]}]}`)
	}))
	defer srv.Close()

	adapter := NewOpenAIAdapter(Config{BaseURL: srv.URL + "/v1", EmbeddingModel: openai.AdaEmbeddingV2, EmbeddingDimensions: 3})

	_, err := adapter.CreateEmbeddings(context.Background(), []string{"x"})

	require.NoError(t, err)
	_, sent := raw["dimensions"]
	assert.False(t, sent)
}

func TestOpenAIAdapter_StreamChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, tok := range []string{"Lewis", " Hamilton"} {
			fmt.Fprintf(w, "data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", tok)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	adapter := NewOpenAIAdapter(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1"})

	var got []string
	err := adapter.StreamChat(context.Background(),
		[]openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: "who?"}},
		func(d string) error {
			got = append(got, d)
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, []string{"Lewis", " Hamilton"}, got)
}

func TestOpenAIAdapter_StreamChat_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"invalid api key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	adapter := NewOpenAIAdapter(Config{BaseURL: srv.URL + "/v1"})

	err := adapter.StreamChat(context.Background(), nil, func(string) error { return nil })

	assert.Error(t, err)
}
