package logger

import (
	"fmt"
	"strings"
)

// MaskPaymentID hides the middle of a gateway payment id so logs stay
// correlatable without leaking the full identifier.
func MaskPaymentID(id string) string {
	if len(id) <= 8 {
		return strings.Repeat("*", len(id))
	}
	return id[:4] + strings.Repeat("*", len(id)-8) + id[len(id)-4:]
}

// SanitizeText trims user-provided text for logging, keeping only a short
// prefix and the length.
func SanitizeText(text string) string {
	if text == "" {
		return "<empty>"
	}
	if len(text) <= 10 {
		return fmt.Sprintf("<%d chars>", len(text))
	}
	return fmt.Sprintf("%s...<%d chars>", text[:8], len(text))
}
