// Package narrator explains a ranked recommendation list in prose,
// degrading to a deterministic template when the completion client is
// unavailable or erroring.
package narrator

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"insurance-rag/internal/llmservice"
	"insurance-rag/internal/models"
)

const noProductsNarrative = "No suitable products found matching your requirements."

type Narrator struct {
	client llmservice.Client
}

// New builds a narrator. client may be nil, in which case only the fallback
// template is used.
func New(client llmservice.Client) *Narrator {
	return &Narrator{client: client}
}

// Narrate produces the explanation for ranked. An empty list short-circuits
// to a fixed message without invoking the completion client; a completion
// failure degrades to the fallback template rather than surfacing.
func (n *Narrator) Narrate(ctx context.Context, ranked []models.Recommendation, needs models.Needs) string {
	if len(ranked) == 0 {
		return noProductsNarrative
	}

	if n.client != nil {
		narrative, err := n.client.Complete(ctx, buildPrompt(ranked, needs))
		if err == nil {
			return narrative
		}
		log.Error().Err(err).Msg("Failed to generate narrative")
	}
	return fallbackNarrative(ranked)
}

func buildPrompt(ranked []models.Recommendation, needs models.Needs) string {
	var b strings.Builder
	b.WriteString("You are an insurance advisor. Create a brief, professional narrative explaining ")
	b.WriteString("why these products are recommended for the customer.\n\n")

	b.WriteString("Customer Needs:\n")
	keys := make([]string, 0, len(needs))
	for k := range needs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString("- " + k + ": " + needs[k].String() + "\n")
	}

	b.WriteString("\nRecommended Products:\n")
	for i, rec := range ranked {
		fmt.Fprintf(&b, "%d. %s by %s (Score: %.2f)\n", i+1, rec.ProductName, rec.Insurer, rec.RelevanceScore)
	}

	b.WriteString("\nProvide a concise 2-3 sentence explanation of why these products match the customer's needs.")
	return b.String()
}

func fallbackNarrative(ranked []models.Recommendation) string {
	var b strings.Builder
	b.WriteString("Based on your requirements, we recommend the following products: ")
	for i := 0; i < len(ranked) && i < 3; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(ranked[i].ProductName)
	}
	b.WriteString(". These products best match your needs and budget.")
	return b.String()
}
