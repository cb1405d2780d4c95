package conv

import (
	"strings"
	"testing"
)

func TestMarkdownToText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{
			name:     "plain text",
			input:    "Hello world",
			contains: []string{"Hello world"},
		},
		{
			name:     "bold stripped to text",
			input:    "**important**",
			contains: []string{"important"},
			excludes: []string{"<strong>", "**"},
		},
		{
			name:     "list items preserved",
			input:    "- first\n- second",
			contains: []string{"first", "second"},
			excludes: []string{"<li>"},
		},
		{
			name:     "heading text survives",
			input:    "# Key Points",
			contains: []string{"Key Points"},
			excludes: []string{"#", "<h1>"},
		},
		{
			name:     "script tags sanitized away",
			input:    "<script>alert('xss')</script>summary",
			contains: []string{"summary"},
			excludes: []string{"alert", "script"},
		},
		{
			name:     "link target retained",
			input:    "[docs](https://example.com)",
			contains: []string{"example.com"},
			excludes: []string{"<a href"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MarkdownToText([]byte(tt.input))
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("MarkdownToText(%q) = %q, missing %q", tt.input, got, want)
				}
			}
			for _, bad := range tt.excludes {
				if strings.Contains(got, bad) {
					t.Errorf("MarkdownToText(%q) = %q, should not contain %q", tt.input, got, bad)
				}
			}
		})
	}
}
