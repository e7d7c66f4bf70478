// Package budget trims article text to the unit budget accepted by the
// text-generation collaborator.
//
// A unit is a whitespace-delimited word. Truncation keeps a byte prefix of the
// original text that ends exactly at a unit boundary, so the result is stable
// under repeated truncation with the same budget.
package budget

import (
	"unicode"
	"unicode/utf8"
)

const (
	// ChatReserveUnits is held back from the input budget for the question
	// and the generated answer when building a chat context.
	ChatReserveUnits = 500

	// MinChatUnits is the smallest chat context budget ever handed out.
	MinChatUnits = 100
)

// CountUnits returns the number of units in text.
func CountUnits(text string) int {
	count := 0
	inUnit := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			inUnit = false
			continue
		}
		if !inUnit {
			count++
			inUnit = true
		}
	}
	return count
}

// Truncate returns the longest prefix of text containing at most maxUnits
// units. Text already within budget is returned unchanged. Trailing
// whitespace after the last kept unit is dropped.
func Truncate(text string, maxUnits int) string {
	if CountUnits(text) <= maxUnits {
		return text
	}
	if maxUnits <= 0 {
		return ""
	}

	count := 0
	inUnit := false
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			if inUnit && count == maxUnits {
				return text[:i]
			}
			inUnit = false
		} else if !inUnit {
			count++
			inUnit = true
		}
		i += size
	}

	return text
}

// ChatBudget derives the chat context budget from the summarization input
// budget.
func ChatBudget(maxInputUnits int) int {
	units := maxInputUnits - ChatReserveUnits
	if units < MinChatUnits {
		return MinChatUnits
	}
	return units
}
