// Package htmlsanitize strips markup from free-text fields (workspace,
// project and task descriptions) before they are stored.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict removes every tag; the policy is safe for concurrent use.
var strict = bluemonday.StrictPolicy()

// PlainText removes all HTML from s and returns the remaining text with
// entities decoded and surrounding whitespace trimmed.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// IsPlainText reports whether s contains no tag-like sequences.
func IsPlainText(s string) bool {
	return !strings.ContainsAny(s, "<>")
}
