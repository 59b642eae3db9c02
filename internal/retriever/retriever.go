// Package retriever turns a query plus customer needs into a deduplicated,
// distance-ordered candidate set via vector search.
package retriever

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"insurance-rag/internal/embedding"
	"insurance-rag/internal/models"
	"insurance-rag/internal/store"
)

// Candidate is a deduplicated product surfaced by vector search, carrying
// the best-scoring chunk's record and distance.
type Candidate struct {
	Record   store.Record
	Distance float64
}

type Retriever struct {
	embedder  embedding.Client
	store     store.VectorStore
	overfetch int
}

// New builds a retriever. overfetch is the over-fetch factor applied to k to
// give the ranker room to reorder; values below 2 are raised to 2.
func New(embedder embedding.Client, vs store.VectorStore, overfetch int) *Retriever {
	if overfetch < 2 {
		overfetch = 2
	}
	return &Retriever{embedder: embedder, store: vs, overfetch: overfetch}
}

// Retrieve expands the query with selected needs, embeds it once, searches
// product embeddings for overfetch*k matches and deduplicates by product id,
// keeping the lowest-distance chunk per product.
func (r *Retriever) Retrieve(ctx context.Context, query string, needs models.Needs, k int) ([]Candidate, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", models.ErrInvalidArgument, k)
	}

	expanded := ExpandQuery(query, needs)
	log.Debug().Str("query", expanded).Msg("Retrieving candidates")

	vector, err := r.embedder.Embed(ctx, expanded)
	if err != nil {
		return nil, err
	}

	matches, err := r.store.Search(ctx, vector, k*r.overfetch, models.KindProduct)
	if err != nil {
		return nil, err
	}

	// Matches arrive in ascending distance, so the first record seen per
	// product is its best chunk.
	seen := make(map[int64]bool, len(matches))
	candidates := make([]Candidate, 0, len(matches))
	for _, m := range matches {
		if seen[m.Record.EntityID] {
			continue
		}
		seen[m.Record.EntityID] = true
		candidates = append(candidates, Candidate{Record: m.Record, Distance: m.Distance})
	}
	return candidates, nil
}

// ExpandQuery appends selected needs to the query text in a fixed order:
// insurance types, coverage amount, family situation.
func ExpandQuery(query string, needs models.Needs) string {
	var b strings.Builder
	b.WriteString(query)

	if types := needs.StringList(models.NeedInsuranceTypes); len(types) > 0 {
		b.WriteString(" " + strings.Join(types, " "))
	}
	if coverage, ok := needs[models.NeedCoverageAmount]; ok {
		b.WriteString(" coverage: " + coverage.String())
	}
	if family, ok := needs[models.NeedFamilySituation]; ok {
		b.WriteString(" " + family.String())
	}
	return b.String()
}
