package retriever

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insurance-rag/internal/models"
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

func TestExpandQueryFixedOrder(t *testing.T) {
	needs := models.Needs{
		models.NeedFamilySituation: models.StringValue("young family"),
		models.NeedInsuranceTypes:  models.ListValue("life", "health"),
		models.NeedCoverageAmount:  models.NumberValue(500000),
	}
	expanded := ExpandQuery("best policy", needs)
	assert.Equal(t, "best policy life health coverage: 500000 young family", expanded)
}

func TestExpandQueryWithoutNeeds(t *testing.T) {
	assert.Equal(t, "best policy", ExpandQuery("best policy", nil))
	assert.Equal(t, "best policy", ExpandQuery("best policy", models.Needs{}))
}

func TestExpandQueryScalarType(t *testing.T) {
	needs := models.Needs{models.NeedInsuranceTypes: models.StringValue("life")}
	assert.Equal(t, "q life", ExpandQuery("q", needs))
}

func TestRetrieveDeduplicatesByProduct(t *testing.T) {
	ctx := context.Background()
	s := memstore.New(testDim)

	// Two chunks for product 1 at different distances, one for product 2.
	require.NoError(t, s.UpsertEntity(ctx, models.KindProduct, 1, []store.Chunk{
		{Text: "p1 close", Vector: []float32{1, 0, 0, 0}},
		{Text: "p1 far", Vector: []float32{0, 1, 0, 0}},
	}))
	require.NoError(t, s.UpsertEntity(ctx, models.KindProduct, 2, []store.Chunk{
		{Text: "p2", Vector: []float32{1, 1, 0, 0}},
	}))

	r := New(&fixedEmbedder{vector: []float32{1, 0, 0, 0}}, s, 2)
	candidates, err := r.Retrieve(ctx, "query", nil, 3)
	require.NoError(t, err)

	require.Len(t, candidates, 2)
	assert.Equal(t, int64(1), candidates[0].Record.EntityID)
	assert.Equal(t, "p1 close", candidates[0].Record.ChunkText)
	assert.Equal(t, int64(2), candidates[1].Record.EntityID)
	assert.True(t, candidates[0].Distance <= candidates[1].Distance)
}

func TestRetrieveFiltersToProducts(t *testing.T) {
	ctx := context.Background()
	s := memstore.New(testDim)

	require.NoError(t, s.UpsertEntity(ctx, models.KindDocChunk, 9, []store.Chunk{
		{Text: "doc chunk", Vector: []float32{1, 0, 0, 0}},
	}))
	require.NoError(t, s.UpsertEntity(ctx, models.KindProduct, 1, []store.Chunk{
		{Text: "product", Vector: []float32{1, 0, 0, 0}},
	}))

	r := New(&fixedEmbedder{vector: []float32{1, 0, 0, 0}}, s, 2)
	candidates, err := r.Retrieve(ctx, "query", nil, 5)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, models.KindProduct, candidates[0].Record.Kind)
}

func TestRetrieveInvalidK(t *testing.T) {
	r := New(&fixedEmbedder{vector: []float32{1, 0, 0, 0}}, memstore.New(testDim), 2)
	_, err := r.Retrieve(context.Background(), "query", nil, 0)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}
