package pipeline

import (
	"html"
	"strings"
)

// DependencyKind distinguishes the tag emitted for a dependency.
type DependencyKind int

// Dependency kinds, numbered as they arrive on the wire.
const (
	Stylesheet DependencyKind = iota
	Script
)

// Dependency is one external resource injected into the document head.
type Dependency struct {
	Kind DependencyKind
	URL  string
}

// Assemble builds a complete HTML document around rendered template content.
//
// The head carries the charset and viewport metadata, one <style> block with
// css, then one tag per dependency in input order: <link rel="stylesheet"> for
// stylesheets and <script src> for scripts. Dependencies of any other kind are
// skipped without error. content is placed in the body verbatim.
func Assemble(content, css string, deps []Dependency) string {
	var b strings.Builder
	b.Grow(len(content) + len(css) + 256 + len(deps)*96)

	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	b.WriteString(`<meta charset="utf-8">` + "\n")
	b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">` + "\n")

	b.WriteString("<style>")
	b.WriteString(sanitizeCSS(css))
	b.WriteString("</style>\n")

	for _, d := range deps {
		switch d.Kind {
		case Stylesheet:
			b.WriteString(`<link rel="stylesheet" href="`)
			b.WriteString(html.EscapeString(d.URL))
			b.WriteString(`">` + "\n")
		case Script:
			b.WriteString(`<script src="`)
			b.WriteString(html.EscapeString(d.URL))
			b.WriteString(`"></script>` + "\n")
		}
	}

	b.WriteString("</head>\n<body>\n")
	b.WriteString(content)
	b.WriteString("\n</body>\n</html>\n")

	return b.String()
}

// sanitizeCSS escapes sequences that could break out of a <style> block.
func sanitizeCSS(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}
