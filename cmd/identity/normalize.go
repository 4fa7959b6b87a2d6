package identity

import "strings"

// NormalizeUsername performs case-insensitive canonicalization.
// Note: only trim + lower-case. Unicode confusables are not folded.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
