package htmlsanitize_test

import (
	"strings"
	"testing"

	"github.com/dalemusser/taskhub/internal/app/system/htmlsanitize"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "Sprint planning notes", "Sprint planning notes"},
		{"ampersand survives", "R&D backlog", "R&D backlog"},
		{"strips tags", "<p><strong>Bold</strong> plan</p>", "Bold plan"},
		{"trims", "   padded   ", "padded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htmlsanitize.PlainText(tt.input); got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPlainText_RemovesScript(t *testing.T) {
	got := htmlsanitize.PlainText("Hello<script>alert('xss')</script>")
	if strings.Contains(got, "<script") {
		t.Errorf("expected script tag removed, got %q", got)
	}
	if !strings.HasPrefix(got, "Hello") {
		t.Errorf("expected text preserved, got %q", got)
	}
}

func TestPlainText_RemovesJavascriptHref(t *testing.T) {
	got := htmlsanitize.PlainText(`<a href="javascript:alert('xss')">Click</a>`)
	if got != "Click" {
		t.Errorf("expected only link text, got %q", got)
	}
}

func TestIsPlainText(t *testing.T) {
	if !htmlsanitize.IsPlainText("") {
		t.Error("expected empty string to be plain text")
	}
	if !htmlsanitize.IsPlainText("Hello, World!") {
		t.Error("expected string without tags to be plain text")
	}
	if htmlsanitize.IsPlainText("<p>Hello</p>") {
		t.Error("expected string with tags to NOT be plain text")
	}
}
