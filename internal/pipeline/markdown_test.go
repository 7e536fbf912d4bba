package pipeline

import (
	"strings"
	"testing"
)

func TestMarkdown_ToHTML(t *testing.T) {
	t.Parallel()

	md := NewMarkdown()

	tests := []struct {
		name         string
		input        string
		wantContains []string
		wantExcludes []string
	}{
		{
			name:         "heading gets an id",
			input:        "# Payment terms",
			wantContains: []string{`<h1 id="payment-terms">Payment terms</h1>`},
		},
		{
			name:         "emphasis",
			input:        "**due** on receipt",
			wantContains: []string{"<strong>due</strong>"},
		},
		{
			name:         "GFM table",
			input:        "| a | b |\n|---|---|\n| 1 | 2 |",
			wantContains: []string{"<table>", "<td>1</td>"},
		},
		{
			name:         "code block highlighted with classes",
			input:        "```go\nfunc main() {}\n```",
			wantContains: []string{`class="chroma"`},
		},
		{
			name:         "raw HTML is not passed through",
			input:        "<script>alert(1)</script>",
			wantExcludes: []string{"<script>"},
		},
		{
			name:         "highlight syntax becomes mark",
			input:        "pay ==before Friday==",
			wantContains: []string{"<mark>before Friday</mark>"},
		},
		{
			name:         "CRLF line endings normalized",
			input:        "line one\r\nline two",
			wantContains: []string{"line one<br />"},
			wantExcludes: []string{"\r"},
		},
		{
			name:         "empty input",
			input:        "",
			wantExcludes: []string{"<p>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := md.ToHTML(tt.input)
			if err != nil {
				t.Fatalf("ToHTML() error = %v", err)
			}
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("output missing %q\ngot: %s", want, got)
				}
			}
			for _, exclude := range tt.wantExcludes {
				if strings.Contains(got, exclude) {
					t.Errorf("output should not contain %q\ngot: %s", exclude, got)
				}
			}
		})
	}
}
