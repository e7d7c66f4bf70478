package orchestrator

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Input length limits, in characters, after trimming.
const (
	MaxQueryLength    = 200
	MaxQuestionLength = 500
)

// validateField trims value and checks it holds 1..max characters.
func validateField(field, value string, max int) (string, error) {
	value = strings.TrimSpace(value)
	n := utf8.RuneCountInString(value)
	if n == 0 {
		return value, fmt.Errorf("%s must not be empty", field)
	}
	if n > max {
		return value, fmt.Errorf("%s must be at most %d characters, got %d", field, max, n)
	}
	return value, nil
}
