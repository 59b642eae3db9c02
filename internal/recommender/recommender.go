// Package recommender is the public operation surface of the recommendation
// engine: Recommend runs retrieval, ranking and narration for a customer
// query; Search exposes raw vector similarity search.
package recommender

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"insurance-rag/internal/embedding"
	"insurance-rag/internal/models"
	"insurance-rag/internal/narrator"
	"insurance-rag/internal/ranker"
	"insurance-rag/internal/retriever"
	"insurance-rag/internal/store"
)

const (
	defaultMaxResults  = 5
	defaultSearchLimit = 10
)

// Request is a product recommendation request. Needs carries the explicit
// payload; VoiceSessionID optionally references a prior voice session whose
// extracted needs fill any gaps.
type Request struct {
	Query          string
	Needs          models.Needs
	MaxResults     int
	VoiceSessionID int64
}

// Response is the ranked, explained recommendation list.
type Response struct {
	Narrative    string                  `json:"narrative"`
	Products     []models.Recommendation `json:"products"`
	MatchedNeeds models.Needs            `json:"matchedNeeds"`
}

// ProductSource resolves candidate products for ranking.
type ProductSource interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
}

// Sessions reads extracted needs from voice sessions and stores generated
// recommendations back on them.
type Sessions interface {
	ExtractedNeeds(ctx context.Context, sessionID int64) (models.Needs, error)
	SaveRecommendations(ctx context.Context, sessionID int64, recs []models.Recommendation) error
}

type Recommender struct {
	retriever *retriever.Retriever
	narrator  *narrator.Narrator
	products  ProductSource
	sessions  Sessions
	embedder  embedding.Client
	store     store.VectorStore
}

func New(r *retriever.Retriever, n *narrator.Narrator, products ProductSource, sessions Sessions, embedder embedding.Client, vs store.VectorStore) *Recommender {
	return &Recommender{
		retriever: r,
		narrator:  n,
		products:  products,
		sessions:  sessions,
		embedder:  embedder,
		store:     vs,
	}
}

// Recommend runs the full pipeline. Once ranking has produced a list the
// response always succeeds; narrator failures degrade internally.
func (r *Recommender) Recommend(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("%w: query is required", models.ErrInvalidArgument)
	}
	limit := req.MaxResults
	if limit == 0 {
		limit = defaultMaxResults
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: maxResults must be positive, got %d", models.ErrInvalidArgument, req.MaxResults)
	}

	log.Info().Str("query", req.Query).Int("limit", limit).Msg("Generating product recommendations")

	needs := r.gatherNeeds(ctx, req)

	candidates, err := r.retriever.Retrieve(ctx, req.Query, needs, limit)
	if err != nil {
		return nil, err
	}

	// Resolve candidates to full products, preserving the retriever's
	// distance order so ranking ties stay deterministic.
	products := make([]models.Product, 0, len(candidates))
	for _, c := range candidates {
		product, err := r.products.GetProduct(ctx, c.Record.EntityID)
		if err != nil {
			log.Warn().Err(err).Int64("product_id", c.Record.EntityID).Msg("Candidate product not found")
			continue
		}
		products = append(products, *product)
	}

	ranked, err := ranker.Rank(products, needs, limit)
	if err != nil {
		return nil, err
	}

	narrative := r.narrator.Narrate(ctx, ranked, needs)

	if req.VoiceSessionID != 0 && r.sessions != nil {
		if err := r.sessions.SaveRecommendations(ctx, req.VoiceSessionID, ranked); err != nil {
			log.Error().Err(err).Int64("session_id", req.VoiceSessionID).Msg("Failed to store recommendations in session")
		}
	}

	return &Response{
		Narrative:    narrative,
		Products:     ranked,
		MatchedNeeds: needs,
	}, nil
}

// gatherNeeds merges the request payload with the voice session's extracted
// needs. Request values win; session values only fill absent keys.
func (r *Recommender) gatherNeeds(ctx context.Context, req Request) models.Needs {
	var sessionNeeds models.Needs
	if req.VoiceSessionID != 0 && r.sessions != nil {
		needs, err := r.sessions.ExtractedNeeds(ctx, req.VoiceSessionID)
		if err != nil {
			log.Warn().Err(err).Int64("session_id", req.VoiceSessionID).Msg("Could not load session needs")
		} else {
			sessionNeeds = needs
		}
	}
	return models.MergeNeeds(req.Needs, sessionNeeds)
}

// Search embeds the query and returns the closest stored chunks across all
// entity kinds. limit <= 0 defaults to 10.
func (r *Recommender) Search(ctx context.Context, query string, limit int) ([]store.Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", models.ErrInvalidArgument)
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return r.store.Search(ctx, vector, limit, "")
}
