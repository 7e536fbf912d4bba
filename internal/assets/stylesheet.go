package assets

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// maxStylesheetSize caps stylesheets read from an explicit file path.
const maxStylesheetSize = 1 << 20

// Stylesheet builds the supplementary CSS injected after page load.
//
// ref is either a style name resolved through loader or a path ending in
// ".css" read directly from disk. An empty ref yields only the highlight
// sheet. An empty highlight skips code colouring.
func Stylesheet(loader StyleLoader, ref, highlight string) (string, error) {
	var parts []string

	if ref != "" {
		css, err := loadRef(loader, ref)
		if err != nil {
			return "", err
		}
		parts = append(parts, css)
	}

	if highlight != "" {
		css, err := HighlightCSS(highlight)
		if err != nil {
			return "", err
		}
		parts = append(parts, css)
	}

	return strings.Join(parts, "\n"), nil
}

func loadRef(loader StyleLoader, ref string) (string, error) {
	if !strings.HasSuffix(ref, ".css") {
		return loader.LoadStyle(ref)
	}

	f, err := os.Open(ref) // #nosec G304 -- operator-supplied config path
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrStyleNotFound, ref)
		}
		return "", fmt.Errorf("%w: %v", ErrAssetRead, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, maxStylesheetSize+1))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAssetRead, err)
	}
	if len(data) > maxStylesheetSize {
		return "", fmt.Errorf("%w: %s exceeds %d bytes", ErrAssetRead, ref, maxStylesheetSize)
	}
	return string(data), nil
}
