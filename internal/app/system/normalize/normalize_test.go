package normalize

import "testing"

func TestNormalizers(t *testing.T) {
	tests := []struct {
		fn    string
		f     func(string) string
		input string
		want  string
	}{
		{"Email", Email, "  User@Example.Com  ", "user@example.com"},
		{"Email", Email, "Mixed.Case@Domain.ORG", "mixed.case@domain.org"},
		{"Email", Email, "   ", ""},
		{"Name", Name, "  Jane Roe  ", "Jane Roe"},
		{"Name", Name, "UPPER lower", "UPPER lower"},
		{"Name", Name, "\t\n", ""},
		{"Code", Code, "  X7K2PQ ", "x7k2pq"},
		{"Code", Code, "", ""},
		{"Keyword", Keyword, "fix  login \t bug", "fix login bug"},
		{"Keyword", Keyword, "  spaced  ", "spaced"},
		{"Keyword", Keyword, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.fn+"/"+tt.input, func(t *testing.T) {
			if got := tt.f(tt.input); got != tt.want {
				t.Errorf("%s(%q) = %q, want %q", tt.fn, tt.input, got, tt.want)
			}
		})
	}
}
