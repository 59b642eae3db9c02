// Package ranker rescores retrieval candidates with rule-based signal boosts
// layered on top of vector similarity. Scoring is deterministic: identical
// inputs always produce the same ordered list and scores.
package ranker

import (
	"fmt"
	"sort"
	"strings"

	"insurance-rag/internal/models"
)

const (
	baseScore    = 0.5
	typeBoost    = 0.3
	concernBoost = 0.1
	maxScore     = 1.0
)

// Rank scores the candidate products against the customer needs, sorts them
// descending by score (ties keep the incoming retrieval order) and truncates
// to limit. products must arrive in the retriever's distance order.
func Rank(products []models.Product, needs models.Needs, limit int) ([]models.Recommendation, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", models.ErrInvalidArgument, limit)
	}

	ranked := make([]models.Recommendation, 0, len(products))
	for _, product := range products {
		ranked = append(ranked, models.Recommendation{
			ProductID:      product.ID,
			ProductName:    product.Name,
			Insurer:        product.Insurer,
			PlanType:       product.PlanType,
			RelevanceScore: Score(product, needs),
			Reasoning:      Reasoning(product, needs),
			Details:        product.Details,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RelevanceScore > ranked[j].RelevanceScore
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// Score computes the composite relevance score: 0.5 base, +0.3 for the first
// insurance-type match against the category name, +0.1 per tag/concern pair
// whose lower-cased strings contain each other, capped at 1.0.
func Score(product models.Product, needs models.Needs) float64 {
	score := baseScore

	category := strings.ToLower(product.CategoryName)
	for _, t := range needs.StringList(models.NeedInsuranceTypes) {
		if strings.Contains(category, strings.ToLower(t)) {
			score += typeBoost
			break
		}
	}

	for _, tag := range product.Tags {
		lowTag := strings.ToLower(tag)
		for _, concern := range needs.StringList(models.NeedConcerns) {
			lowConcern := strings.ToLower(concern)
			if strings.Contains(lowTag, lowConcern) || strings.Contains(lowConcern, lowTag) {
				score += concernBoost
			}
		}
	}

	if score > maxScore {
		score = maxScore
	}
	return score
}

// Reasoning renders the fixed explanatory template for a recommendation.
// It is metadata for the reader, not part of the score.
func Reasoning(product models.Product, needs models.Needs) string {
	var b strings.Builder
	b.WriteString("This " + product.CategoryName + " product from " + product.Insurer + " matches your needs")

	if types, ok := needs[models.NeedInsuranceTypes]; ok {
		b.WriteString(" for " + types.String())
	}
	if budget, ok := needs[models.NeedBudget]; ok {
		b.WriteString(" within your budget of " + budget.String())
	}
	return b.String()
}
