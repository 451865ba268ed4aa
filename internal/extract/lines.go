// Package extract rebuilds structured records from raw OCR text.
//
// Recognized text carries no markup: a receipt photo or a handwritten contact
// list arrives as a sequence of lines that may be noisy, wrapped or mixed-script.
// The extractors in this package work in a single pass over those lines:
//
//   - SplitLines turns the text block into trimmed, non-empty lines.
//   - The pattern matchers (PricePatterns, EmailPattern, PhonePattern) detect
//     prices, emails and phone numbers inside a line.
//   - ParseReceipt classifies each line, borrows names from neighbouring lines
//     when a price stands alone, infers a category and falls back to a relaxed
//     single-record pass when nothing else matched.
//   - ParseContacts drives a small accumulator state machine that flushes a
//     contact whenever a new record boundary is detected.
//
// Everything here is pure and safe for concurrent use.
package extract

import (
	"strings"
	"unicode/utf8"
)

// MinLineLength is the shortest trimmed line the segmenter keeps.
const MinLineLength = 1

// SplitLines splits recognized text into trimmed lines, dropping empty ones.
// Order is preserved; the assemblers rely on it for lookback and lookahead.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		trimmed := strings.TrimSpace(line)
		if utf8.RuneCountInString(trimmed) < MinLineLength {
			continue
		}
		lines = append(lines, trimmed)
	}
	return lines
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
