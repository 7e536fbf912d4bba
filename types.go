package docgen

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// OutputFormat is the artifact type a render produces.
type OutputFormat int

const (
	FormatHTML OutputFormat = iota
	FormatPDF
)

// ParseOutputFormat parses "html" or "pdf", case-insensitively.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "html":
		return FormatHTML, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return 0, newError(KindUnsupportedFormat, "format", fmt.Errorf("%q (want html or pdf)", s))
	}
}

func (f OutputFormat) String() string {
	switch f {
	case FormatHTML:
		return "html"
	case FormatPDF:
		return "pdf"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// ContentType returns the MIME type of artifacts in this format.
func (f OutputFormat) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/html; charset=utf-8"
}

// DependencyKind tells the assembler which tag to emit for a dependency.
// The numeric values are part of the HTTP contract.
type DependencyKind int

const (
	Stylesheet DependencyKind = 0
	Script     DependencyKind = 1
)

// Dependency is an external stylesheet or script referenced from the
// document head, in request order.
type Dependency struct {
	Kind DependencyKind `json:"type"`
	URL  string         `json:"url"`
}

// RenderRequest is the input of Renderer.Render.
type RenderRequest struct {
	Dependencies []Dependency
	// Layout is the template source, already decoded. See DecodeLayout.
	Layout string
	Data   map[string]any
	Format OutputFormat
	// PDF overrides the default print options; ignored for HTML.
	PDF *PDFOptions
	// RequestID correlates log lines; optional.
	RequestID string
}

// Artifact is a rendered document.
type Artifact struct {
	Format OutputFormat
	Body   []byte
	Pages  int // estimated page count
}

// ContentType returns the artifact's MIME type.
func (a *Artifact) ContentType() string {
	return a.Format.ContentType()
}

// DecodeLayout decodes a base64 layout template. Standard padding is tried
// first, then the raw and URL-safe alphabets.
func DecodeLayout(encoded string) (string, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return "", newError(KindValidation, "decode", fmt.Errorf("layout is required"))
	}

	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	}
	for _, enc := range encodings {
		raw, err := enc.DecodeString(encoded)
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(raw)) == "" {
			return "", newError(KindValidation, "decode", fmt.Errorf("layout decodes to an empty template"))
		}
		return string(raw), nil
	}
	return "", newError(KindValidation, "decode", fmt.Errorf("layout is not valid base64"))
}

// DecodeData decodes template data given either as a JSON object or as a
// string holding one. Absent, null and empty input yield an empty map.
func DecodeData(raw []byte) (map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return map[string]any{}, nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, newError(KindValidation, "decode", fmt.Errorf("data: %v", err))
		}
		raw = bytes.TrimSpace([]byte(s))
		if len(raw) == 0 {
			return map[string]any{}, nil
		}
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, newError(KindValidation, "decode", fmt.Errorf("data must be a JSON object: %v", err))
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}
