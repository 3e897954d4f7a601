package vectorstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/paddock/internal/domain"
)

func newTestBolt(t *testing.T, metric domain.Metric) *BoltStore {
	t.Helper()
	store, err := OpenBolt(filepath.Join(t.TempDir(), "paddock.db"), "f1gpt")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	created, err := store.CreateCollection(context.Background(), "f1gpt", 3, metric)
	require.NoError(t, err)
	require.True(t, created)
	return store
}

func TestBoltStore_CreateCollection_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestBolt(t, domain.MetricCosine)

	created, err := store.CreateCollection(ctx, "f1gpt", 3, domain.MetricCosine)
	require.NoError(t, err)
	assert.False(t, created)

	_, err = store.CreateCollection(ctx, "f1gpt", 5, domain.MetricCosine)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	_, err = store.CreateCollection(ctx, "f1gpt", 3, domain.MetricEuclidean)
	assert.Equal(t, domain.ErrCodeDimensionMismatch, domain.Code(err))
}

func TestBoltStore_SearchEmptyCollection(t *testing.T) {
	store := newTestBolt(t, domain.MetricCosine)

	hits, err := store.Search(context.Background(), []float32{1, 0, 0}, 5)

	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestBoltStore_SearchRanksAndLimits(t *testing.T) {
	ctx := context.Background()
	store := newTestBolt(t, domain.MetricCosine)

	for _, r := range []domain.StoredRecord{
		{Vector: []float32{0, 1, 0}, Text: "far"},
		{Vector: []float32{1, 0.1, 0}, Text: "near"},
		{Vector: []float32{1, 0, 0}, Text: "exact"},
	} {
		require.NoError(t, store.Insert(ctx, r))
	}

	hits, err := store.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "exact", hits[0].Record.Text)
	assert.Equal(t, "near", hits[1].Record.Text)
	assert.Greater(t, hits[0].Score, hits[1].Score)

	hits, err = store.Search(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 3)
}

func TestBoltStore_TiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestBolt(t, domain.MetricDotProduct)

	for _, text := range []string{"first", "second", "third"} {
		require.NoError(t, store.Insert(ctx, domain.StoredRecord{Vector: []float32{1, 1, 1}, Text: text}))
	}

	hits, err := store.Search(ctx, []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "first", hits[0].Record.Text)
	assert.Equal(t, "second", hits[1].Record.Text)
	assert.Equal(t, "third", hits[2].Record.Text)
}

func TestBoltStore_DuplicatesAreKept(t *testing.T) {
	ctx := context.Background()
	store := newTestBolt(t, domain.MetricCosine)

	rec := domain.StoredRecord{Vector: []float32{1, 0, 0}, Text: "same", SourceURL: "https://a"}
	require.NoError(t, store.Insert(ctx, rec))
	require.NoError(t, store.Insert(ctx, rec))

	info, err := store.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), info.Count)
	assert.Equal(t, 3, info.Dimension)
	assert.Equal(t, domain.MetricCosine, info.Metric)
}

func TestBoltStore_DimensionChecks(t *testing.T) {
	ctx := context.Background()
	store := newTestBolt(t, domain.MetricCosine)

	err := store.Insert(ctx, domain.StoredRecord{Vector: []float32{1, 0}, Text: "short"})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	_, err = store.Search(ctx, []float32{1, 0, 0, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestBoltStore_MissingCollection(t *testing.T) {
	store, err := OpenBolt(filepath.Join(t.TempDir(), "paddock.db"), "nope")
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Info(context.Background())
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestScore(t *testing.T) {
	assert.InDelta(t, 1.0, Score(domain.MetricCosine, []float32{2, 0}, []float32{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, Score(domain.MetricCosine, []float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 0.0, Score(domain.MetricCosine, []float32{0, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 11.0, Score(domain.MetricDotProduct, []float32{1, 2}, []float32{3, 4}), 1e-9)
	assert.InDelta(t, 1.0/6.0, Score(domain.MetricEuclidean, []float32{0, 0}, []float32{3, 4}), 1e-9)
}
