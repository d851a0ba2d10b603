// internal/app/system/search/search.go
package search

import (
	"regexp"
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Contains returns a filter matching documents whose folded field contains
// the folded keyword. field must hold text.Fold output (for example
// title_ci). An empty keyword returns nil.
func Contains(field, keyword string) bson.M {
	q := strings.TrimSpace(keyword)
	if q == "" {
		return nil
	}
	return bson.M{field: primitive.Regex{Pattern: regexp.QuoteMeta(text.Fold(q))}}
}

// Split parses a comma-separated query value into trimmed, non-empty parts.
func Split(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
