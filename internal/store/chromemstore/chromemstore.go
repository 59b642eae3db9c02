// Package chromemstore backs the vector store with a persistent chromem-go
// database for local runs without Postgres.
package chromemstore

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"strconv"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"insurance-rag/internal/models"
	"insurance-rag/internal/store"
)

const compress = false

// Store satisfies store.VectorStore. Unlike the Postgres backend, chromem
// exposes no insertion order, so equal-distance results come back in an
// unspecified order.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	dimension  int
}

// New opens (or creates) the persistent database at dbPath and the named
// collection.
func New(dbPath, collectionName string, dimension int) (*Store, error) {
	db, err := chromem.NewPersistentDB(dbPath, compress)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %v", err)
	}
	c, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %v", err)
	}
	return &Store{db: db, collection: c, dimension: dimension}, nil
}

func entityWhere(kind models.EntityKind, entityID int64) map[string]string {
	return map[string]string{
		"entity_kind": string(kind),
		"entity_id":   strconv.FormatInt(entityID, 10),
	}
}

func (s *Store) UpsertEntity(ctx context.Context, kind models.EntityKind, entityID int64, chunks []store.Chunk) error {
	for _, c := range chunks {
		if len(c.Vector) != s.dimension {
			return fmt.Errorf("%w: got %d, expected %d", models.ErrDimensionMismatch, len(c.Vector), s.dimension)
		}
	}

	docs := make([]chromem.Document, 0, len(chunks))
	ids := make([]string, 0, len(chunks))
	for _, c := range chunks {
		meta := entityWhere(kind, entityID)
		if c.Metadata != nil {
			encoded, err := json.Marshal(c.Metadata)
			if err != nil {
				return fmt.Errorf("%w: %v", models.ErrIndexWrite, err)
			}
			meta["metadata_json"] = string(encoded)
		}
		id := uuid.NewString()
		ids = append(ids, id)
		docs = append(docs, chromem.Document{
			ID:        id,
			Content:   c.Text,
			Metadata:  meta,
			Embedding: c.Vector,
		})
	}

	if err := s.deleteEntity(ctx, kind, entityID); err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}
	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		// Best-effort rollback so a half-written entity does not linger.
		if derr := s.collection.Delete(ctx, nil, nil, ids...); derr != nil {
			log.Warn().Err(derr).Msg("rollback of partial insert failed")
		}
		return fmt.Errorf("%w: %v", models.ErrIndexWrite, err)
	}
	return nil
}

func (s *Store) DeleteEntity(ctx context.Context, kind models.EntityKind, entityID int64) error {
	return s.deleteEntity(ctx, kind, entityID)
}

func (s *Store) deleteEntity(ctx context.Context, kind models.EntityKind, entityID int64) error {
	if s.collection.Count() == 0 {
		return nil
	}
	if err := s.collection.Delete(ctx, entityWhere(kind, entityID), nil); err != nil {
		return fmt.Errorf("%w: %v", models.ErrIndexWrite, err)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, queryVector []float32, k int, kindFilter models.EntityKind) ([]store.Match, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", models.ErrInvalidArgument, k)
	}
	if len(queryVector) != s.dimension {
		return nil, fmt.Errorf("%w: got %d, expected %d", models.ErrDimensionMismatch, len(queryVector), s.dimension)
	}

	// chromem rejects nResults greater than the collection size.
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	opts := chromem.QueryOptions{
		QueryEmbedding: queryVector,
		NResults:       k,
	}
	if kindFilter != "" {
		opts.Where = map[string]string{"entity_kind": string(kindFilter)}
	}

	results, err := s.collection.QueryWithOptions(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	matches := make([]store.Match, 0, len(results))
	for _, res := range results {
		rec := store.Record{
			Kind:      models.EntityKind(res.Metadata["entity_kind"]),
			ChunkText: res.Content,
			Vector:    res.Embedding,
		}
		if id, err := strconv.ParseInt(res.Metadata["entity_id"], 10, 64); err == nil {
			rec.EntityID = id
		}
		if encoded, ok := res.Metadata["metadata_json"]; ok {
			var meta map[string]models.Value
			if err := json.Unmarshal([]byte(encoded), &meta); err == nil {
				rec.Metadata = meta
			}
		}
		matches = append(matches, store.Match{
			Record:   rec,
			Distance: 1 - float64(res.Similarity),
		})
	}
	return matches, nil
}
