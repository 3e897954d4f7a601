package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/cloo-solutions/paddock/internal/domain"
)

var unsafeTableChars = regexp.MustCompile(`[^a-z0-9_]+`)

// Postgres truncates identifiers beyond this length.
const maxIdentifierLen = 63

const (
	pgUniqueViolation         = "23505"
	tableNameUniqueConstraint = "collections_table_name_key"
)

type collectionMeta struct {
	name      string
	table     string
	dimension int
	metric    domain.Metric
}

// VectorStore persists records of one named collection in pgvector.
//
// The collections table registers each collection's dimension and metric;
// records live in a dedicated table with an HNSW index for that metric.
type VectorStore struct {
	pool *pgxpool.Pool
	name string

	mu   sync.RWMutex
	meta *collectionMeta
}

func NewVectorStore(pool *pgxpool.Pool, collection string) *VectorStore {
	return &VectorStore{pool: pool, name: collection}
}

// Runs returns the ingestion run log stored alongside this collection.
func (s *VectorStore) Runs() *IngestRunRepository {
	return NewIngestRunRepository(s.pool, s.name)
}

// TableName derives the records table for a collection name.
func TableName(collection string) string {
	t := unsafeTableChars.ReplaceAllString(strings.ToLower(collection), "_")
	t = "chunks_" + strings.Trim(t, "_")
	if len(t) > maxIdentifierLen {
		t = t[:maxIdentifierLen]
	}
	return t
}

// CreateCollection registers the collection and creates its table. An
// existing collection with the same dimension and metric is a no-op and
// returns false; a conflicting one is DIMENSION_MISMATCH. A name whose table
// already belongs to another collection is INVALID_REQUEST.
func (s *VectorStore) CreateCollection(ctx context.Context, name string, dimension int, metric domain.Metric) (bool, error) {
	if dimension <= 0 {
		return false, domain.NewDomainError(domain.ErrCodeInvalidRequest, "dimension must be positive")
	}
	table := TableName(name)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, domain.StoreUnavailable(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var owner string
	err = tx.QueryRow(ctx,
		`SELECT name FROM collections WHERE table_name = $1 AND name <> $2`, table, name,
	).Scan(&owner)
	switch {
	case err == nil:
		return false, tableCollision(name, table, owner)
	case !errors.Is(err, pgx.ErrNoRows):
		return false, domain.StoreUnavailable(fmt.Errorf("failed to check collection table: %w", err))
	}

	tag, err := tx.Exec(ctx,
		`INSERT INTO collections (name, table_name, dimension, metric)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (name) DO NOTHING`,
		name, table, dimension, string(metric),
	)
	if err != nil {
		if isTableNameConflict(err) {
			return false, tableCollision(name, table, "")
		}
		return false, domain.StoreUnavailable(fmt.Errorf("failed to register collection: %w", err))
	}

	if tag.RowsAffected() == 0 {
		existing, err := loadMeta(ctx, tx, name)
		if err != nil {
			return false, err
		}
		if existing.dimension != dimension {
			return false, domain.DimensionMismatch(existing.dimension, dimension)
		}
		if existing.metric != metric {
			return false, domain.NewDomainError(domain.ErrCodeDimensionMismatch,
				fmt.Sprintf("collection %q already exists with metric %s, requested %s", name, existing.metric, metric))
		}
		log.Printf("collection %q may already exist: keeping existing (dimension %d, metric %s)", name, dimension, metric)
		s.cache(existing)
		return false, nil
	}

	ident := pgx.Identifier{table}.Sanitize()
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id          BIGSERIAL PRIMARY KEY,
		source_url  TEXT,
		content     TEXT NOT NULL,
		embedding   vector(%d) NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`, ident, dimension)
	if _, err := tx.Exec(ctx, ddl); err != nil {
		return false, domain.StoreUnavailable(fmt.Errorf("failed to create collection table: %w", err))
	}

	index := pgx.Identifier{table + "_embedding_idx"}.Sanitize()
	if len(table)+len("_embedding_idx") > maxIdentifierLen {
		index = pgx.Identifier{table[:maxIdentifierLen-len("_idx")] + "_idx"}.Sanitize()
	}
	idxSQL := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding %s)`, index, ident, opClass(metric))
	if _, err := tx.Exec(ctx, idxSQL); err != nil {
		return false, domain.StoreUnavailable(fmt.Errorf("failed to create collection index: %w", err))
	}

	if err := tx.Commit(ctx); err != nil {
		return false, domain.StoreUnavailable(err)
	}

	log.Printf("collection %q created (dimension %d, metric %s)", name, dimension, metric)
	s.cache(&collectionMeta{name: name, table: table, dimension: dimension, metric: metric})
	return true, nil
}

// tableCollision reports two collection names that normalize to one table.
// owner is empty when a concurrent registration won the race.
func tableCollision(collection, table, owner string) error {
	if owner == "" {
		owner = "another collection"
	} else {
		owner = fmt.Sprintf("collection %q", owner)
	}
	return domain.NewDomainError(domain.ErrCodeInvalidRequest,
		fmt.Sprintf("collection %q maps to table %q, which %s already uses; choose a name that differs after lowercasing and replacing punctuation with underscores",
			collection, table, owner))
}

func isTableNameConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == tableNameUniqueConstraint
}

// Insert appends one record. No uniqueness is enforced.
func (s *VectorStore) Insert(ctx context.Context, rec domain.StoredRecord) error {
	meta, err := s.collection(ctx)
	if err != nil {
		return err
	}
	if len(rec.Vector) != meta.dimension {
		return domain.DimensionMismatch(meta.dimension, len(rec.Vector))
	}

	query := fmt.Sprintf(`INSERT INTO %s (source_url, content, embedding) VALUES ($1, $2, $3)`,
		pgx.Identifier{meta.table}.Sanitize())
	if _, err := s.pool.Exec(ctx, query, nullableString(rec.SourceURL), rec.Text, pgvector.NewVector(rec.Vector)); err != nil {
		return domain.StoreUnavailable(fmt.Errorf("failed to insert record: %w", err))
	}
	return nil
}

// Search returns up to k records nearest to vector, ties broken by
// insertion order.
func (s *VectorStore) Search(ctx context.Context, vector []float32, k int) ([]domain.SearchHit, error) {
	meta, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}
	if len(vector) != meta.dimension {
		return nil, domain.DimensionMismatch(meta.dimension, len(vector))
	}
	if k <= 0 {
		return []domain.SearchHit{}, nil
	}

	op := distanceOperator(meta.metric)
	query := fmt.Sprintf(`
		SELECT id, COALESCE(source_url, ''), content, embedding %s $1 AS distance
		FROM %s
		ORDER BY embedding %s $1, id
		LIMIT $2`, op, pgx.Identifier{meta.table}.Sanitize(), op)

	rows, err := s.pool.Query(ctx, query, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, domain.StoreUnavailable(fmt.Errorf("failed to search collection: %w", err))
	}
	defer rows.Close()

	hits := make([]domain.SearchHit, 0, k)
	for rows.Next() {
		var (
			id       int64
			hit      domain.SearchHit
			distance float64
		)
		if err := rows.Scan(&id, &hit.Record.SourceURL, &hit.Record.Text, &distance); err != nil {
			return nil, domain.StoreUnavailable(err)
		}
		hit.Record.ID = fmt.Sprintf("%d", id)
		hit.Score = similarity(meta.metric, distance)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreUnavailable(err)
	}
	return hits, nil
}

// Info reports the collection's declared dimension, metric and record count.
func (s *VectorStore) Info(ctx context.Context) (domain.CollectionInfo, error) {
	meta, err := s.collection(ctx)
	if err != nil {
		return domain.CollectionInfo{}, err
	}

	var count int64
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, pgx.Identifier{meta.table}.Sanitize())
	if err := s.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return domain.CollectionInfo{}, domain.StoreUnavailable(err)
	}

	return domain.CollectionInfo{
		Name:      meta.name,
		Dimension: meta.dimension,
		Metric:    meta.metric,
		Count:     count,
	}, nil
}

// Ping checks database connectivity.
func (s *VectorStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return domain.StoreUnavailable(err)
	}
	return nil
}

func (s *VectorStore) cache(m *collectionMeta) {
	if m.name != s.name {
		return
	}
	s.mu.Lock()
	s.meta = m
	s.mu.Unlock()
}

func (s *VectorStore) collection(ctx context.Context) (*collectionMeta, error) {
	s.mu.RLock()
	m := s.meta
	s.mu.RUnlock()
	if m != nil {
		return m, nil
	}

	m, err := loadMeta(ctx, s.pool, s.name)
	if err != nil {
		return nil, err
	}
	s.cache(m)
	return m, nil
}

func loadMeta(ctx context.Context, db dbtx, name string) (*collectionMeta, error) {
	var (
		m      collectionMeta
		metric string
	)
	err := db.QueryRow(ctx,
		`SELECT name, table_name, dimension, metric FROM collections WHERE name = $1`, name,
	).Scan(&m.name, &m.table, &m.dimension, &metric)
	if isNoRows(err) {
		return nil, domain.StoreUnavailable(fmt.Errorf("collection %q does not exist", name))
	}
	if err != nil {
		return nil, domain.StoreUnavailable(err)
	}
	m.metric = domain.Metric(metric)
	return &m, nil
}

func opClass(m domain.Metric) string {
	switch m {
	case domain.MetricDotProduct:
		return "vector_ip_ops"
	case domain.MetricEuclidean:
		return "vector_l2_ops"
	default:
		return "vector_cosine_ops"
	}
}

func distanceOperator(m domain.Metric) string {
	switch m {
	case domain.MetricDotProduct:
		return "<#>"
	case domain.MetricEuclidean:
		return "<->"
	default:
		return "<=>"
	}
}

// similarity converts a pgvector distance into a higher-is-closer score.
func similarity(m domain.Metric, distance float64) float64 {
	switch m {
	case domain.MetricDotProduct:
		// <#> returns the negative inner product
		return -distance
	case domain.MetricEuclidean:
		return 1.0 / (1.0 + distance)
	default:
		return 1.0 - distance
	}
}
