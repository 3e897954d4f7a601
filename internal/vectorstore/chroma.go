package vectorstore

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/google/uuid"

	"github.com/cloo-solutions/paddock/internal/domain"
)

const (
	metaDimension = "paddock:dimension"
	metaMetric    = "paddock:metric"
	metaHNSWSpace = "hnsw:space"
	metaSourceURL = "source_url"
)

// ChromaStore is a VectorStore backed by a Chroma server.
type ChromaStore struct {
	client chromago.Client
	name   string

	mu         sync.RWMutex
	collection chromago.Collection
	dimension  int
	metric     domain.Metric
}

// NewChromaStore connects to the Chroma server at baseURL.
func NewChromaStore(baseURL, collection string) (*ChromaStore, error) {
	client, err := chromago.NewHTTPClient(chromago.WithBaseURL(baseURL))
	if err != nil {
		return nil, domain.StoreUnavailable(fmt.Errorf("failed to create chroma client: %w", err))
	}
	return &ChromaStore{client: client, name: collection}, nil
}

func (s *ChromaStore) Close() error {
	return s.client.Close()
}

func hnswSpace(m domain.Metric) string {
	switch m {
	case domain.MetricDotProduct:
		return "ip"
	case domain.MetricEuclidean:
		return "l2"
	default:
		return "cosine"
	}
}

// chromaScore converts Chroma's distance for the collection's space into a
// higher-is-closer score.
func chromaScore(m domain.Metric, distance float64) float64 {
	switch m {
	case domain.MetricDotProduct:
		// ip space reports 1 - dot
		return 1.0 - distance
	case domain.MetricEuclidean:
		// l2 space reports squared distance
		if distance < 0 {
			distance = 0
		}
		return 1.0 / (1.0 + math.Sqrt(distance))
	default:
		return 1.0 - distance
	}
}

func (s *ChromaStore) CreateCollection(ctx context.Context, name string, dimension int, metric domain.Metric) (bool, error) {
	if dimension <= 0 {
		return false, domain.NewDomainError(domain.ErrCodeInvalidRequest, "dimension must be positive")
	}

	coll, err := s.client.GetOrCreateCollection(ctx, name,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute(metaHNSWSpace, hnswSpace(metric)),
				chromago.NewIntAttribute(metaDimension, int64(dimension)),
				chromago.NewStringAttribute(metaMetric, string(metric)),
			),
		),
	)
	if err != nil {
		return false, domain.StoreUnavailable(fmt.Errorf("failed to get or create collection: %w", err))
	}

	existingDim, existingMetric, err := collectionMeta(coll)
	if err != nil {
		return false, err
	}
	if existingDim != dimension {
		return false, domain.DimensionMismatch(existingDim, dimension)
	}
	if existingMetric != metric {
		return false, domain.NewDomainError(domain.ErrCodeDimensionMismatch,
			fmt.Sprintf("collection %q already exists with metric %s, requested %s", name, existingMetric, metric))
	}

	count, err := coll.Count(ctx)
	if err != nil {
		return false, domain.StoreUnavailable(err)
	}
	if count > 0 {
		log.Printf("collection %q may already exist: keeping existing (dimension %d, metric %s)", name, dimension, metric)
	} else {
		log.Printf("collection %q ready (dimension %d, metric %s)", name, dimension, metric)
	}

	if name == s.name {
		s.mu.Lock()
		s.collection, s.dimension, s.metric = coll, dimension, metric
		s.mu.Unlock()
	}
	return count == 0, nil
}

func collectionMeta(coll chromago.Collection) (int, domain.Metric, error) {
	md := coll.Metadata()
	if md == nil {
		return 0, "", domain.StoreUnavailable(fmt.Errorf("collection %q has no metadata", coll.Name()))
	}
	dim, ok := md.GetInt(metaDimension)
	if !ok {
		return 0, "", domain.StoreUnavailable(fmt.Errorf("collection %q was not created by paddock", coll.Name()))
	}
	metric, _ := md.GetString(metaMetric)
	m, err := domain.ParseMetric(metric)
	if err != nil {
		return 0, "", domain.StoreUnavailable(err)
	}
	return int(dim), m, nil
}

func (s *ChromaStore) open(ctx context.Context) (chromago.Collection, int, domain.Metric, error) {
	s.mu.RLock()
	coll, dim, metric := s.collection, s.dimension, s.metric
	s.mu.RUnlock()
	if coll != nil {
		return coll, dim, metric, nil
	}

	coll, err := s.client.GetCollection(ctx, s.name)
	if err != nil {
		return nil, 0, "", domain.StoreUnavailable(fmt.Errorf("collection %q: %w", s.name, err))
	}
	dim, metric, err = collectionMeta(coll)
	if err != nil {
		return nil, 0, "", err
	}

	s.mu.Lock()
	s.collection, s.dimension, s.metric = coll, dim, metric
	s.mu.Unlock()
	return coll, dim, metric, nil
}

func (s *ChromaStore) Insert(ctx context.Context, rec domain.StoredRecord) error {
	coll, dim, _, err := s.open(ctx)
	if err != nil {
		return err
	}
	if len(rec.Vector) != dim {
		return domain.DimensionMismatch(dim, len(rec.Vector))
	}

	err = coll.Add(ctx,
		chromago.WithIDs(chromago.DocumentID(uuid.NewString())),
		chromago.WithTexts(rec.Text),
		chromago.WithEmbeddings(embeddings.NewEmbeddingFromFloat32(rec.Vector)),
		chromago.WithMetadatas(chromago.NewDocumentMetadata(
			chromago.NewStringAttribute(metaSourceURL, rec.SourceURL),
		)),
	)
	if err != nil {
		return domain.StoreUnavailable(fmt.Errorf("failed to add record to chromadb: %w", err))
	}
	return nil
}

// Search queries the collection's HNSW index. Chroma does not guarantee an
// order between equidistant records.
func (s *ChromaStore) Search(ctx context.Context, vector []float32, k int) ([]domain.SearchHit, error) {
	coll, dim, metric, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	if len(vector) != dim {
		return nil, domain.DimensionMismatch(dim, len(vector))
	}

	hits := []domain.SearchHit{}
	count, err := coll.Count(ctx)
	if err != nil {
		return nil, domain.StoreUnavailable(err)
	}
	if count == 0 || k <= 0 {
		return hits, nil
	}
	if k > count {
		k = count
	}

	results, err := coll.Query(ctx,
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(vector)),
		chromago.WithNResults(k),
	)
	if err != nil {
		return nil, domain.StoreUnavailable(fmt.Errorf("failed to query chromadb: %w", err))
	}

	docGroups := results.GetDocumentsGroups()
	if len(docGroups) == 0 {
		return hits, nil
	}
	idGroups := results.GetIDGroups()
	metaGroups := results.GetMetadatasGroups()
	distGroups := results.GetDistancesGroups()

	for i, doc := range docGroups[0] {
		hit := domain.SearchHit{Record: domain.StoredRecord{Text: doc.ContentString()}}
		if len(idGroups) > 0 && i < len(idGroups[0]) {
			hit.Record.ID = string(idGroups[0][i])
		}
		if len(metaGroups) > 0 && i < len(metaGroups[0]) && metaGroups[0][i] != nil {
			hit.Record.SourceURL, _ = metaGroups[0][i].GetString(metaSourceURL)
		}
		if len(distGroups) > 0 && i < len(distGroups[0]) {
			hit.Score = chromaScore(metric, float64(distGroups[0][i]))
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (s *ChromaStore) Info(ctx context.Context) (domain.CollectionInfo, error) {
	coll, dim, metric, err := s.open(ctx)
	if err != nil {
		return domain.CollectionInfo{}, err
	}
	count, err := coll.Count(ctx)
	if err != nil {
		return domain.CollectionInfo{}, domain.StoreUnavailable(err)
	}
	return domain.CollectionInfo{Name: s.name, Dimension: dim, Metric: metric, Count: int64(count)}, nil
}

// Ping calls the server heartbeat.
func (s *ChromaStore) Ping(ctx context.Context) error {
	if err := s.client.Heartbeat(ctx); err != nil {
		return domain.StoreUnavailable(err)
	}
	return nil
}
