package pipeline

import (
	"strings"
	"testing"
)

func TestRewriteRelativeURLs(t *testing.T) {
	t.Parallel()

	const base = "https://assets.example.com/templates/invoice/"

	tests := []struct {
		name         string
		html         string
		base         string
		wantContains []string
		wantExcludes []string
	}{
		{
			name:         "relative image with dot slash",
			html:         `<img src="./images/logo.png">`,
			base:         base,
			wantContains: []string{`src="https://assets.example.com/templates/invoice/images/logo.png"`},
		},
		{
			name:         "parent directory reference",
			html:         `<link rel="stylesheet" href="../shared/base.css">`,
			base:         base,
			wantContains: []string{`href="https://assets.example.com/templates/shared/base.css"`},
		},
		{
			name:         "root-relative script",
			html:         `<script src="/js/chart.js"></script>`,
			base:         base,
			wantContains: []string{`src="https://assets.example.com/js/chart.js"`},
		},
		{
			name:         "absolute URL unchanged",
			html:         `<img src="https://cdn.example.com/x.png">`,
			base:         base,
			wantContains: []string{`src="https://cdn.example.com/x.png"`},
		},
		{
			name:         "data URI unchanged",
			html:         `<img src="data:image/png;base64,AAAA">`,
			base:         base,
			wantContains: []string{`src="data:image/png;base64,AAAA"`},
		},
		{
			name:         "anchor unchanged",
			html:         `<a href="#section-2">jump</a>`,
			base:         base,
			wantContains: []string{`href="#section-2"`},
		},
		{
			name:         "protocol-relative unchanged",
			html:         `<img src="//cdn.example.com/x.png">`,
			base:         base,
			wantContains: []string{`src="//cdn.example.com/x.png"`},
			wantExcludes: []string{"assets.example.com"},
		},
		{
			name:         "fragment is not wrapped in html/body",
			html:         `<p>Hi</p><img src="a.png">`,
			base:         base,
			wantContains: []string{`<p>Hi</p>`},
			wantExcludes: []string{"<html>", "<body>"},
		},
		{
			name:         "full document keeps its structure",
			html:         `<!DOCTYPE html><html><head></head><body><img src="a.png"></body></html>`,
			base:         base,
			wantContains: []string{"<!DOCTYPE html>", "<body>", `src="https://assets.example.com/templates/invoice/a.png"`},
		},
		{
			name:         "empty base returns input",
			html:         `<img src="a.png">`,
			base:         "",
			wantContains: []string{`<img src="a.png">`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := RewriteRelativeURLs(tt.html, tt.base)
			if err != nil {
				t.Fatalf("RewriteRelativeURLs() error = %v", err)
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

func TestRewriteRelativeURLs_RelativeBase(t *testing.T) {
	t.Parallel()

	if _, err := RewriteRelativeURLs(`<img src="a.png">`, "assets/"); err == nil {
		t.Fatal("expected error for relative base URL")
	}
}
