package util

import "strings"

// OrDash returns s, or "-" when s is empty.
func OrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// JoinOrDash joins items with ", ", or returns "-" when there are none.
func JoinOrDash(items ...string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

// MaskSecret keeps the first four characters of a secret and hides the rest.
// Short secrets are hidden entirely.
func MaskSecret(s string) string {
	switch {
	case s == "":
		return "-"
	case len(s) <= 8:
		return strings.Repeat("*", len(s))
	default:
		return s[:4] + strings.Repeat("*", 8)
	}
}
