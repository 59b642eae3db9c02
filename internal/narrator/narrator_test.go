package narrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insurance-rag/internal/models"
)

type fakeCompleter struct {
	response string
	err      error
	calls    int
	prompt   string
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.prompt = prompt
	return f.response, f.err
}

func ranked(names ...string) []models.Recommendation {
	recs := make([]models.Recommendation, len(names))
	for i, name := range names {
		recs[i] = models.Recommendation{
			ProductName:    name,
			Insurer:        "Acme Mutual",
			RelevanceScore: 0.9,
		}
	}
	return recs
}

func TestNarrateEmptyListSkipsClient(t *testing.T) {
	client := &fakeCompleter{response: "should not be used"}
	n := New(client)

	out := n.Narrate(context.Background(), nil, nil)
	assert.Equal(t, "No suitable products found matching your requirements.", out)
	assert.Equal(t, 0, client.calls)
}

func TestNarrateDelegatesToClient(t *testing.T) {
	client := &fakeCompleter{response: "These plans fit your family's needs."}
	n := New(client)

	needs := models.Needs{models.NeedBudget: models.StringValue("$50")}
	out := n.Narrate(context.Background(), ranked("TermLife Basic"), needs)

	assert.Equal(t, "These plans fit your family's needs.", out)
	require.Equal(t, 1, client.calls)
	assert.Contains(t, client.prompt, "You are an insurance advisor.")
	assert.Contains(t, client.prompt, "- budget: $50")
	assert.Contains(t, client.prompt, "1. TermLife Basic by Acme Mutual (Score: 0.90)")
}

func TestNarrateFallsBackOnError(t *testing.T) {
	client := &fakeCompleter{err: errors.New("model unavailable")}
	n := New(client)

	out := n.Narrate(context.Background(), ranked("A", "B"), nil)
	assert.Equal(t, "Based on your requirements, we recommend the following products: A, B. These products best match your needs and budget.", out)
	assert.Equal(t, 1, client.calls)
}

func TestNarrateFallbackCapsAtThreeNames(t *testing.T) {
	n := New(nil)

	out := n.Narrate(context.Background(), ranked("A", "B", "C", "D", "E"), nil)
	assert.Equal(t, "Based on your requirements, we recommend the following products: A, B, C. These products best match your needs and budget.", out)
}

func TestNarrateNilClientUsesFallback(t *testing.T) {
	n := New(nil)
	out := n.Narrate(context.Background(), ranked("Solo"), nil)
	assert.Equal(t, "Based on your requirements, we recommend the following products: Solo. These products best match your needs and budget.", out)
}
