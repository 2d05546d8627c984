package gencontent

import (
	"strings"

	"cardgen/internal/models"
)

// QualityThreshold is the minimum quality score an accepted card must reach.
const QualityThreshold = 0.6

// qualityChecks is the number of independent checks in QualityScore.
const qualityChecks = 6

// QualityScore rates a generated card between 0.0 and 1.0. Each check
// contributes an equal share.
func QualityScore(card *models.Card) float64 {
	if card == nil {
		return 0
	}

	passed := 0

	if len([]rune(strings.TrimSpace(card.Title))) > 5 {
		passed++
	}

	if len([]rune(strings.TrimSpace(card.ShortDescription))) > 10 {
		passed++
	}

	if len([]rune(strings.TrimSpace(card.DetailedDescription))) > 20 {
		passed++
	}

	if countNonEmpty(card.Features) >= 2 {
		passed++
	}

	if countNonEmpty(card.SEOKeywords) >= 2 {
		passed++
	}

	if countNonEmpty(card.TargetAudience) >= 2 {
		passed++
	}

	return float64(passed) / float64(qualityChecks)
}

func countNonEmpty(items []string) int {
	n := 0
	for _, item := range items {
		if strings.TrimSpace(item) != "" {
			n++
		}
	}
	return n
}
