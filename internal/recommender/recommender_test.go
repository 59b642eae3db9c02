package recommender

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insurance-rag/internal/models"
	"insurance-rag/internal/narrator"
	"insurance-rag/internal/retriever"
	"insurance-rag/internal/store"
	"insurance-rag/internal/store/memstore"
)

const testDim = 4

type fixedEmbedder struct {
	vector []float32
}

func (f *fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vector, nil
}

func (f *fixedEmbedder) Dimension() int { return testDim }

type fakeProducts struct {
	products map[int64]models.Product
}

func (f *fakeProducts) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: product %d", models.ErrNotFound, id)
	}
	return &p, nil
}

type fakeSessions struct {
	needs models.Needs
	saved []models.Recommendation
}

func (f *fakeSessions) ExtractedNeeds(ctx context.Context, sessionID int64) (models.Needs, error) {
	if f.needs == nil {
		return nil, fmt.Errorf("%w: voice session %d", models.ErrNotFound, sessionID)
	}
	return f.needs, nil
}

func (f *fakeSessions) SaveRecommendations(ctx context.Context, sessionID int64, recs []models.Recommendation) error {
	f.saved = recs
	return nil
}

func newTestRecommender(t *testing.T, sessions Sessions) (*Recommender, *memstore.Store) {
	t.Helper()
	s := memstore.New(testDim)

	require.NoError(t, s.UpsertEntity(context.Background(), models.KindProduct, 1, []store.Chunk{
		{Text: "Product: TermLife Basic", Vector: []float32{1, 0, 0, 0}},
	}))
	require.NoError(t, s.UpsertEntity(context.Background(), models.KindProduct, 2, []store.Chunk{
		{Text: "Product: TravelCare", Vector: []float32{0, 1, 0, 0}},
	}))

	products := &fakeProducts{products: map[int64]models.Product{
		1: {
			ID:           1,
			Name:         "TermLife Basic",
			Insurer:      "Acme Mutual",
			CategoryName: "Life Insurance",
			Tags:         []string{"term", "affordable"},
		},
		2: {
			ID:           2,
			Name:         "TravelCare",
			Insurer:      "Globe Assurance",
			CategoryName: "Travel Insurance",
		},
	}}

	embedder := &fixedEmbedder{vector: []float32{1, 0, 0, 0}}
	rtr := retriever.New(embedder, s, 2)
	nar := narrator.New(nil)
	return New(rtr, nar, products, sessions, embedder, s), s
}

func TestRecommendEndToEnd(t *testing.T) {
	rec, _ := newTestRecommender(t, nil)

	resp, err := rec.Recommend(context.Background(), Request{
		Query: "life insurance for young family",
		Needs: models.Needs{
			models.NeedInsuranceTypes: models.ListValue("life"),
			models.NeedConcerns:       models.ListValue("affordable"),
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Products)

	top := resp.Products[0]
	assert.Equal(t, "TermLife Basic", top.ProductName)
	// 0.5 base + 0.3 type match + 0.1 tag/concern match.
	assert.InDelta(t, 0.9, top.RelevanceScore, 1e-9)
	assert.Contains(t, top.Reasoning, "This Life Insurance product from Acme Mutual")
	assert.Contains(t, resp.Narrative, "TermLife Basic")
}

func TestRecommendEmptyQuery(t *testing.T) {
	rec, _ := newTestRecommender(t, nil)
	_, err := rec.Recommend(context.Background(), Request{Query: "   "})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestRecommendNegativeMaxResults(t *testing.T) {
	rec, _ := newTestRecommender(t, nil)
	_, err := rec.Recommend(context.Background(), Request{Query: "q", MaxResults: -1})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestRecommendRequestNeedsWinOverSession(t *testing.T) {
	sessions := &fakeSessions{needs: models.Needs{
		models.NeedBudget:          models.StringValue("$10/month"),
		models.NeedFamilySituation: models.StringValue("single"),
	}}
	rec, _ := newTestRecommender(t, sessions)

	resp, err := rec.Recommend(context.Background(), Request{
		Query:          "life insurance",
		Needs:          models.Needs{models.NeedBudget: models.StringValue("$50/month")},
		VoiceSessionID: 42,
	})
	require.NoError(t, err)

	budget, _ := resp.MatchedNeeds[models.NeedBudget].AsString()
	assert.Equal(t, "$50/month", budget)
	// Session values only fill gaps.
	family, _ := resp.MatchedNeeds[models.NeedFamilySituation].AsString()
	assert.Equal(t, "single", family)
}

func TestRecommendStoresRecommendationsInSession(t *testing.T) {
	sessions := &fakeSessions{needs: models.Needs{}}
	rec, _ := newTestRecommender(t, sessions)

	resp, err := rec.Recommend(context.Background(), Request{
		Query:          "life insurance",
		VoiceSessionID: 42,
	})
	require.NoError(t, err)
	assert.Equal(t, resp.Products, sessions.saved)
}

func TestRecommendMissingSessionIsNotFatal(t *testing.T) {
	rec, _ := newTestRecommender(t, &fakeSessions{})

	resp, err := rec.Recommend(context.Background(), Request{
		Query:          "life insurance",
		VoiceSessionID: 404,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Products)
}

func TestRecommendSkipsVanishedCandidates(t *testing.T) {
	rec, s := newTestRecommender(t, nil)
	require.NoError(t, s.UpsertEntity(context.Background(), models.KindProduct, 99, []store.Chunk{
		{Text: "deleted product", Vector: []float32{1, 0, 0, 0}},
	}))

	resp, err := rec.Recommend(context.Background(), Request{Query: "life insurance"})
	require.NoError(t, err)
	for _, p := range resp.Products {
		assert.NotEqual(t, int64(99), p.ProductID)
	}
}

func TestRecommendNoCandidates(t *testing.T) {
	s := memstore.New(testDim)
	embedder := &fixedEmbedder{vector: []float32{1, 0, 0, 0}}
	rec := New(retriever.New(embedder, s, 2), narrator.New(nil), &fakeProducts{}, nil, embedder, s)

	resp, err := rec.Recommend(context.Background(), Request{Query: "anything"})
	require.NoError(t, err)
	assert.Empty(t, resp.Products)
	assert.Equal(t, "No suitable products found matching your requirements.", resp.Narrative)
}

func TestSearchAcrossKinds(t *testing.T) {
	rec, s := newTestRecommender(t, nil)
	require.NoError(t, s.UpsertEntity(context.Background(), models.KindDocChunk, 10, []store.Chunk{
		{Text: "policy wording", Vector: []float32{1, 0, 0, 0}},
	}))

	matches, err := rec.Search(context.Background(), "policy", 10)
	require.NoError(t, err)
	assert.Len(t, matches, 3)

	// limit <= 0 falls back to the default.
	matches, err = rec.Search(context.Background(), "policy", 0)
	require.NoError(t, err)
	assert.Len(t, matches, 3)
}

func TestSearchEmptyQuery(t *testing.T) {
	rec, _ := newTestRecommender(t, nil)
	_, err := rec.Search(context.Background(), "", 5)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}
