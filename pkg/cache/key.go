package cache

import "strings"

// NormalizeKey generates the cache key for a query.
// Keys are case-insensitive and ignore surrounding whitespace.
//
// Example:
//
//	NormalizeKey("  Machine Learning ") == "machine learning"
func NormalizeKey(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}
