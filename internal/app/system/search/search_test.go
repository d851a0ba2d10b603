package search_test

import (
	"reflect"
	"regexp"
	"testing"

	"github.com/dalemusser/taskhub/internal/app/system/search"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestContains(t *testing.T) {
	if f := search.Contains("title_ci", "   "); f != nil {
		t.Errorf("blank keyword: expected nil filter, got %v", f)
	}

	f := search.Contains("title_ci", "Fix (bug)")
	re, ok := f["title_ci"].(primitive.Regex)
	if !ok {
		t.Fatalf("expected primitive.Regex, got %T", f["title_ci"])
	}
	if !regexp.MustCompile(re.Pattern).MatchString(text.Fold("Please FIX (bug) today")) {
		t.Errorf("pattern %q should match folded title", re.Pattern)
	}
	if regexp.MustCompile(re.Pattern).MatchString(text.Fold("fix bug")) {
		t.Errorf("pattern %q should treat parentheses literally", re.Pattern)
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"todo", []string{"todo"}},
		{"todo, done ,,in_review", []string{"todo", "done", "in_review"}},
	}
	for _, tt := range tests {
		if got := search.Split(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Split(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
