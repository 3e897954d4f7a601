package service

import (
	"context"
	"log"

	"github.com/cloo-solutions/paddock/internal/domain"
	"github.com/cloo-solutions/paddock/internal/telemetry"
)

// DefaultTopK is the number of records retrieved per question.
const DefaultTopK = 10

// QueryConfig controls retrieval for a single question.
type QueryConfig struct {
	Collection string
	TopK       int
	Retry      RetryConfig
}

// QueryPipeline answers a conversation with a grounded, streamed completion.
//
// Retrieval failures degrade instead of failing the request: an embedding
// failure stands in a zero vector, which matches no record, so retrieval is
// skipped; a store failure also yields no context.
// Only an invalid conversation or a model failure is returned to the caller.
type QueryPipeline struct {
	embedder  Embedder
	store     VectorStore
	model     ChatModel
	assembler *PromptAssembler
	retrier   *Retrier
	cfg       QueryConfig
}

// NewQueryPipeline creates a new QueryPipeline instance
func NewQueryPipeline(
	embedder Embedder,
	store VectorStore,
	model ChatModel,
	assembler *PromptAssembler,
	cfg QueryConfig,
) *QueryPipeline {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	return &QueryPipeline{
		embedder:  embedder,
		store:     store,
		model:     model,
		assembler: assembler,
		retrier:   NewRetrier(cfg.Retry),
		cfg:       cfg,
	}
}

// Answer retrieves context for the latest user message and streams the
// model's answer to onToken as it arrives. If onToken returns an error the
// stream stops and that error is returned.
func (q *QueryPipeline) Answer(ctx context.Context, msgs []domain.Message, onToken func(string) error) error {
	if err := domain.ValidateConversation(msgs); err != nil {
		return err
	}
	question, _ := domain.LatestUserMessage(msgs)

	ctx, span := telemetry.StartQuerySpan(ctx, q.cfg.Collection)
	defer span.End()

	var hits []domain.SearchHit
	if vector, ok := q.embedQuestion(ctx, question); ok {
		hits = q.retrieve(ctx, vector)
	}

	prompt := q.assembler.Assemble(domain.HitTexts(hits), question)
	conversation := make([]domain.Message, 0, len(msgs)+1)
	conversation = append(conversation, prompt)
	conversation = append(conversation, msgs...)

	var consumerErr error
	err := q.model.Stream(ctx, conversation, func(tok string) error {
		if err := onToken(tok); err != nil {
			consumerErr = err
			return err
		}
		return nil
	})
	if consumerErr != nil {
		return consumerErr
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err = domain.ModelUnavailable(err)
		span.SetError(err)
		return err
	}
	return nil
}

// embedQuestion returns the question vector, or false when the embedder is
// unavailable.
func (q *QueryPipeline) embedQuestion(ctx context.Context, question string) ([]float32, bool) {
	var vector []float32
	err := q.retrier.Do(ctx, "embed question", func(ctx context.Context) error {
		v, err := q.embedder.Embed(ctx, []string{question})
		if err != nil {
			return domain.EmbeddingUnavailable(err)
		}
		if err := CheckVectors(1, v); err != nil {
			return err
		}
		if len(v[0]) == 0 {
			return domain.EmbeddingUnavailable(nil)
		}
		vector = v[0]
		return nil
	})
	if err != nil {
		log.Printf("query: embedding unavailable, answering without context: %v", err)
		telemetry.AddBreadcrumb(ctx, "query", "embedding degraded to zero vector, retrieval skipped")
		return nil, false
	}
	return vector, true
}

func (q *QueryPipeline) retrieve(ctx context.Context, vector []float32) []domain.SearchHit {
	var hits []domain.SearchHit
	err := q.retrier.Do(ctx, "search", func(ctx context.Context) error {
		h, err := q.store.Search(ctx, vector, q.cfg.TopK)
		if err != nil {
			return domain.StoreUnavailable(err)
		}
		hits = h
		return nil
	})
	if err != nil {
		log.Printf("query: vector store unavailable, answering without context: %v", err)
		telemetry.AddBreadcrumb(ctx, "query", "retrieval degraded to empty context")
		return nil
	}
	return hits
}
