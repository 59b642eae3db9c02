// Package store defines the vector store contract shared by the Postgres,
// chromem and in-memory backends.
package store

import (
	"context"
	"math"
	"time"

	"insurance-rag/internal/models"
)

// Record is one stored embedding: the exact chunk text that was embedded,
// its vector, and provenance metadata the store never interprets.
type Record struct {
	ID        int64
	Kind      models.EntityKind
	EntityID  int64
	ChunkText string
	Vector    []float32
	Metadata  map[string]models.Value
	CreatedAt time.Time
}

// Chunk is the input unit for UpsertEntity.
type Chunk struct {
	Text     string
	Vector   []float32
	Metadata map[string]models.Value
}

// Match is a record paired with its cosine distance to the query vector.
type Match struct {
	Record   Record
	Distance float64
}

// VectorStore is the durable mapping from (kind, entity id, chunk) to a
// stored vector. Implementations must be safe for concurrent use.
//
// UpsertEntity atomically replaces every record for (kind, entityID); a
// partial failure must not leave a mix of old and new records, and surfaces
// as models.ErrIndexWrite. DeleteEntity is idempotent. Search returns at
// most k records in ascending cosine distance, ties broken by insertion
// recency (most recent first); kindFilter narrows by entity kind when
// non-empty. k <= 0 fails with models.ErrInvalidArgument and a wrong-length
// vector with models.ErrDimensionMismatch.
type VectorStore interface {
	UpsertEntity(ctx context.Context, kind models.EntityKind, entityID int64, chunks []Chunk) error
	DeleteEntity(ctx context.Context, kind models.EntityKind, entityID int64) error
	Search(ctx context.Context, queryVector []float32, k int, kindFilter models.EntityKind) ([]Match, error)
}

// CosineDistance returns 1 - cosine similarity, in [0, 2]. A zero vector on
// either side yields the maximum distance.
func CosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 2
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
