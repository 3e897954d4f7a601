package repository

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/cloo-solutions/paddock/internal/domain"
)

func TestTableName(t *testing.T) {
	tests := []struct {
		name       string
		collection string
		want       string
	}{
		{"simple", "f1gpt", "chunks_f1gpt"},
		{"mixed case", "F1GPT", "chunks_f1gpt"},
		{"punctuation", "f1-gpt.v2", "chunks_f1_gpt_v2"},
		{"leading junk", "--news", "chunks_news"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TableName(tt.collection))
		})
	}
}

func TestTableName_Truncates(t *testing.T) {
	got := TableName(strings.Repeat("a", 100))
	assert.Len(t, got, maxIdentifierLen)
	assert.True(t, strings.HasPrefix(got, "chunks_"))
}

func TestTableName_CollidingNames(t *testing.T) {
	assert.Equal(t, TableName("F1-rag"), TableName("f1_rag"))
}

func TestTableCollision(t *testing.T) {
	err := tableCollision("F1-rag", "chunks_f1_rag", "f1_rag")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.Equal(t, domain.ErrCodeInvalidRequest, domain.Code(err))
	assert.Contains(t, err.Error(), `collection "f1_rag"`)
	assert.Contains(t, err.Error(), "chunks_f1_rag")

	err = tableCollision("F1-rag", "chunks_f1_rag", "")
	assert.Contains(t, err.Error(), "another collection")
}

func TestIsTableNameConflict(t *testing.T) {
	conflict := &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: tableNameUniqueConstraint}
	assert.True(t, isTableNameConflict(conflict))
	assert.True(t, isTableNameConflict(fmt.Errorf("insert: %w", conflict)))
	assert.False(t, isTableNameConflict(&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "collections_pkey"}))
	assert.False(t, isTableNameConflict(errors.New("connection reset")))
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 0.75, similarity(domain.MetricCosine, 0.25), 1e-9)
	assert.InDelta(t, 3.0, similarity(domain.MetricDotProduct, -3.0), 1e-9)
	assert.InDelta(t, 0.5, similarity(domain.MetricEuclidean, 1.0), 1e-9)
	assert.InDelta(t, 1.0, similarity(domain.MetricEuclidean, 0), 1e-9)
}

func TestOperators(t *testing.T) {
	assert.Equal(t, "<=>", distanceOperator(domain.MetricCosine))
	assert.Equal(t, "<#>", distanceOperator(domain.MetricDotProduct))
	assert.Equal(t, "<->", distanceOperator(domain.MetricEuclidean))
	assert.Equal(t, "vector_cosine_ops", opClass(domain.MetricCosine))
	assert.Equal(t, "vector_ip_ops", opClass(domain.MetricDotProduct))
	assert.Equal(t, "vector_l2_ops", opClass(domain.MetricEuclidean))
}
