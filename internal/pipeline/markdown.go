package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// ErrMarkdown indicates a markdown field could not be converted.
var ErrMarkdown = errors.New("markdown conversion failed")

// Highlight placeholders from the Unicode Private Use Area survive goldmark
// untouched and become <mark> tags after conversion, so ==text== works
// without enabling raw HTML.
const (
	markStart = "\uE000"
	markEnd   = "\uE001"
)

var (
	crlfOrCR         = regexp.MustCompile(`\r\n?`)
	highlightPattern = regexp.MustCompile(`==(.*?)==`)
	markReplacer     = strings.NewReplacer(markStart, "<mark>", markEnd, "</mark>")
)

// Markdown converts markdown text found in template data into HTML fragments.
type Markdown struct {
	md goldmark.Markdown
}

// NewMarkdown creates a converter with GFM extensions and class-based syntax highlighting.
// Raw HTML inside the markdown is not passed through.
func NewMarkdown() *Markdown {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,      // Tables, strikethrough, autolinks, task lists
			extension.Footnote, // [^1] footnotes
			highlighting.NewHighlighting(
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)
	return &Markdown{md: md}
}

// ToHTML converts markdown text to an HTML fragment. ==text== renders as <mark>.
func (m *Markdown) ToHTML(content string) (string, error) {
	content = crlfOrCR.ReplaceAllString(content, "\n")
	content = highlightPattern.ReplaceAllString(content, markStart+"$1"+markEnd)

	var buf bytes.Buffer
	if err := m.md.Convert([]byte(content), &buf); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMarkdown, err)
	}
	return markReplacer.Replace(buf.String()), nil
}
