package assets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHighlightCSS(t *testing.T) {
	t.Parallel()

	css, err := HighlightCSS("")
	if err != nil {
		t.Fatalf("HighlightCSS(\"\") error = %v", err)
	}
	if !strings.Contains(css, ".chroma") {
		t.Errorf("HighlightCSS() missing .chroma selector:\n%s", css)
	}

	if _, err := HighlightCSS("Monokai"); err != nil {
		t.Errorf("HighlightCSS(Monokai) error = %v", err)
	}

	if _, err := HighlightCSS("no-such-theme"); !errors.Is(err, ErrHighlightStyleNotFound) {
		t.Errorf("HighlightCSS(no-such-theme) error = %v, want ErrHighlightStyleNotFound", err)
	}
}

func TestStylesheet(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	custom := filepath.Join(dir, "brand.css")
	if err := os.WriteFile(custom, []byte("h1 { color: teal; }"), 0o644); err != nil {
		t.Fatal(err)
	}
	loader := NewEmbeddedLoader()

	tests := []struct {
		name         string
		ref          string
		highlight    string
		wantContains []string
		wantEmpty    bool
		wantErr      error
	}{
		{name: "nothing configured", wantEmpty: true},
		{name: "named style", ref: "minimal", wantContains: []string{"max-width: 100%"}},
		{name: "file path", ref: custom, wantContains: []string{"color: teal"}},
		{name: "style plus highlight", ref: "print", highlight: "github", wantContains: []string{"mark {", ".chroma"}},
		{name: "highlight only", highlight: "github", wantContains: []string{".chroma"}},
		{name: "missing file", ref: filepath.Join(dir, "missing.css"), wantErr: ErrStyleNotFound},
		{name: "unknown name", ref: "gothic", wantErr: ErrStyleNotFound},
		{name: "unknown highlight", highlight: "nope", wantErr: ErrHighlightStyleNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Stylesheet(loader, tt.ref, tt.highlight)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Stylesheet() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Stylesheet() unexpected error: %v", err)
			}
			if tt.wantEmpty && got != "" {
				t.Errorf("Stylesheet() = %q, want empty", got)
			}
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("Stylesheet() missing %q", want)
				}
			}
		})
	}
}
