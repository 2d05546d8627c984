package bot

import (
	"fmt"
	"strings"
	"unicode/utf8"

	appmodels "cardgen/internal/models"
)

// maxMessageLength is Telegram's message size limit.
const maxMessageLength = 4096

// formatCard renders a generated card as Telegram HTML.
func formatCard(card *appmodels.Card) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "✨ <b>%s</b>\n\n", escapeHTML(card.Title))

	if card.ShortDescription != "" {
		fmt.Fprintf(&sb, "%s\n\n", escapeHTML(card.ShortDescription))
	}

	if card.DetailedDescription != "" {
		fmt.Fprintf(&sb, "<b>Описание</b>\n%s\n\n", escapeHTML(card.DetailedDescription))
	}

	if len(card.Features) > 0 {
		sb.WriteString("<b>Характеристики</b>\n")
		for _, feature := range card.Features {
			fmt.Fprintf(&sb, "• %s\n", escapeHTML(feature))
		}
		sb.WriteString("\n")
	}

	if len(card.SEOKeywords) > 0 {
		fmt.Fprintf(&sb, "<b>SEO-ключи</b>\n%s\n\n", escapeHTML(strings.Join(card.SEOKeywords, ", ")))
	}

	if len(card.TargetAudience) > 0 {
		fmt.Fprintf(&sb, "<b>Целевая аудитория</b>\n%s\n", escapeHTML(strings.Join(card.TargetAudience, ", ")))
	}

	return strings.TrimRight(sb.String(), "\n")
}

// splitMessage breaks text into chunks that fit Telegram's message limit,
// preferring line boundaries.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(text) > limit {
		cut := strings.LastIndex(text[:limit], "\n")
		if cut <= 0 {
			cut = limit
			// Do not split a multi-byte rune.
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}
		chunks = append(chunks, strings.TrimRight(text[:cut], "\n"))
		text = strings.TrimLeft(text[cut:], "\n")
	}
	if text = strings.TrimRight(text, "\n"); text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
