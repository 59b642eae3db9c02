// Package memstore is a brute-force in-memory vector store used in tests and
// local runs without Postgres.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"insurance-rag/internal/models"
	"insurance-rag/internal/store"
)

type Store struct {
	mu        sync.RWMutex
	dimension int
	nextID    int64
	records   []store.Record
}

func New(dimension int) *Store {
	return &Store{dimension: dimension}
}

func (s *Store) UpsertEntity(ctx context.Context, kind models.EntityKind, entityID int64, chunks []store.Chunk) error {
	// Validate before touching state so the replace stays all-or-nothing.
	for _, c := range chunks {
		if len(c.Vector) != s.dimension {
			return fmt.Errorf("%w: got %d, expected %d", models.ErrDimensionMismatch, len(c.Vector), s.dimension)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	for _, r := range s.records {
		if r.Kind != kind || r.EntityID != entityID {
			kept = append(kept, r)
		}
	}
	s.records = kept

	now := time.Now()
	for _, c := range chunks {
		s.nextID++
		s.records = append(s.records, store.Record{
			ID:        s.nextID,
			Kind:      kind,
			EntityID:  entityID,
			ChunkText: c.Text,
			Vector:    append([]float32(nil), c.Vector...),
			Metadata:  c.Metadata,
			CreatedAt: now,
		})
	}
	return nil
}

func (s *Store) DeleteEntity(ctx context.Context, kind models.EntityKind, entityID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	for _, r := range s.records {
		if r.Kind != kind || r.EntityID != entityID {
			kept = append(kept, r)
		}
	}
	s.records = kept
	return nil
}

func (s *Store) Search(ctx context.Context, queryVector []float32, k int, kindFilter models.EntityKind) ([]store.Match, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", models.ErrInvalidArgument, k)
	}
	if len(queryVector) != s.dimension {
		return nil, fmt.Errorf("%w: got %d, expected %d", models.ErrDimensionMismatch, len(queryVector), s.dimension)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]store.Match, 0, len(s.records))
	for _, r := range s.records {
		if kindFilter != "" && r.Kind != kindFilter {
			continue
		}
		matches = append(matches, store.Match{
			Record:   r,
			Distance: store.CosineDistance(queryVector, r.Vector),
		})
	}

	// Ascending distance; ties go to the most recently inserted record.
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Record.ID > matches[j].Record.ID
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Count reports the number of stored records, optionally narrowed by kind.
func (s *Store) Count(kindFilter models.EntityKind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, r := range s.records {
		if kindFilter == "" || r.Kind == kindFilter {
			n++
		}
	}
	return n
}
