// Package normalize canonicalizes user-supplied strings before they are
// stored or compared.
package normalize

import "strings"

// Email trims and lowercases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace and preserves case.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Code trims and lowercases an opaque code such as an invite code.
func Code(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Keyword trims a search keyword and collapses internal whitespace.
func Keyword(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
