package gencontent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"cardgen/internal/models"
)

func completeCard() *models.Card {
	return &models.Card{
		Title:               "Рюкзак городской Urban 25L",
		ShortDescription:    "Вместительный и лёгкий рюкзак для города и коротких поездок.",
		DetailedDescription: strings.Repeat("Прочная ткань с водоотталкивающей пропиткой. ", 5),
		Features:            []string{"25 литров", "Отделение для ноутбука", "USB-порт", "Водоотталкивающая ткань"},
		SEOKeywords:         []string{"рюкзак", "рюкзак городской", "рюкзак для ноутбука", "рюкзак мужской", "рюкзак женский"},
		TargetAudience:      []string{"Студенты", "Офисные работники"},
	}
}

func TestQualityScore(t *testing.T) {
	t.Parallel()

	t.Run("complete card scores full", func(t *testing.T) {
		t.Parallel()
		require.InDelta(t, 1.0, QualityScore(completeCard()), 0.001)
	})

	t.Run("nil card scores zero", func(t *testing.T) {
		t.Parallel()
		require.Zero(t, QualityScore(nil))
	})

	t.Run("each missing field drops one share", func(t *testing.T) {
		t.Parallel()

		card := completeCard()
		card.Title = ""
		require.InDelta(t, 5.0/6.0, QualityScore(card), 0.001)

		card.TargetAudience = []string{"Студенты"}
		require.InDelta(t, 4.0/6.0, QualityScore(card), 0.001)
	})

	t.Run("too short title fails its check", func(t *testing.T) {
		t.Parallel()

		card := completeCard()
		card.Title = "Товар"
		require.InDelta(t, 5.0/6.0, QualityScore(card), 0.001)
	})

	t.Run("blank list entries do not count", func(t *testing.T) {
		t.Parallel()

		card := completeCard()
		card.Features = []string{"одна", " ", ""}
		require.InDelta(t, 5.0/6.0, QualityScore(card), 0.001)
	})

	t.Run("one weak field still clears the threshold", func(t *testing.T) {
		t.Parallel()

		card := completeCard()
		card.SEOKeywords = nil
		score := QualityScore(card)
		require.InDelta(t, 5.0/6.0, score, 0.001)
		require.GreaterOrEqual(t, score, QualityThreshold)
	})

	t.Run("threshold separates sparse cards", func(t *testing.T) {
		t.Parallel()

		sparse := &models.Card{Title: "Товар 25L", ShortDescription: "Короткое описание"}
		require.Less(t, QualityScore(sparse), QualityThreshold)
		require.GreaterOrEqual(t, QualityScore(completeCard()), QualityThreshold)
	})
}
