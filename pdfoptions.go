package docgen

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/alnah/go-docgen/internal/browser"
)

// Defaults applied by MergePDFOptions.
const (
	DefaultPaperFormat = "A4"
	DefaultMargin      = "40px"
)

// Scale bounds accepted by Chrome's print pipeline.
const (
	MinScale = 0.1
	MaxScale = 2.0
)

// paperSize is width x height in inches, portrait.
type paperSize struct {
	width, height float64
}

var paperFormats = map[string]paperSize{
	"letter":  {8.5, 11},
	"legal":   {8.5, 14},
	"tabloid": {11, 17},
	"ledger":  {17, 11},
	"a0":      {33.1, 46.8},
	"a1":      {23.4, 33.1},
	"a2":      {16.54, 23.4},
	"a3":      {11.7, 16.54},
	"a4":      {8.27, 11.7},
	"a5":      {5.83, 8.27},
	"a6":      {4.13, 5.83},
}

// cssUnitsPerInch converts CSS absolute units to inches.
var cssUnitsPerInch = map[string]float64{
	"px": 96,
	"in": 1,
	"cm": 2.54,
	"mm": 25.4,
	"pt": 72,
	"pc": 6,
}

// Length is a CSS absolute length such as "40px", "1cm" or "0.5in".
// In JSON it may also be a bare number, read as pixels.
type Length string

// UnmarshalJSON accepts a JSON string or number.
func (l *Length) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = Length(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("length must be a string or number: %w", err)
	}
	*l = Length(strconv.FormatFloat(n, 'f', -1, 64) + "px")
	return nil
}

// Margin holds lengths per side. An empty side keeps the default.
type Margin struct {
	Top    Length `json:"top,omitempty"`
	Right  Length `json:"right,omitempty"`
	Bottom Length `json:"bottom,omitempty"`
	Left   Length `json:"left,omitempty"`
}

// PDFOptions overrides the default print settings. Zero fields keep the
// defaults; see MergePDFOptions.
type PDFOptions struct {
	Format              string  `json:"format,omitempty"`
	Width               Length  `json:"width,omitempty"`
	Height              Length  `json:"height,omitempty"`
	Landscape           bool    `json:"landscape,omitempty"`
	PrintBackground     *bool   `json:"printBackground,omitempty"`
	Scale               float64 `json:"scale,omitempty"`
	Margin              *Margin `json:"margin,omitempty"`
	PreferCSSPageSize   bool    `json:"preferCSSPageSize,omitempty"`
	DisplayHeaderFooter bool    `json:"displayHeaderFooter,omitempty"`
	HeaderTemplate      string  `json:"headerTemplate,omitempty"`
	FooterTemplate      string  `json:"footerTemplate,omitempty"`
	PageRanges          string  `json:"pageRanges,omitempty"`
}

// DefaultPDFOptions returns A4, background printing on, 40px margins.
func DefaultPDFOptions() PDFOptions {
	printBackground := true
	return PDFOptions{
		Format:          DefaultPaperFormat,
		PrintBackground: &printBackground,
		Scale:           1,
		Margin: &Margin{
			Top:    DefaultMargin,
			Right:  DefaultMargin,
			Bottom: DefaultMargin,
			Left:   DefaultMargin,
		},
	}
}

// MergePDFOptions overlays o on the defaults key by key. Margins merge per
// side, so {margin: {top: "10px"}} keeps the other three at 40px.
func MergePDFOptions(o *PDFOptions) PDFOptions {
	merged := DefaultPDFOptions()
	if o == nil {
		return merged
	}

	if o.Format != "" {
		merged.Format = o.Format
	}
	if o.Width != "" {
		merged.Width = o.Width
	}
	if o.Height != "" {
		merged.Height = o.Height
	}
	if o.PrintBackground != nil {
		v := *o.PrintBackground
		merged.PrintBackground = &v
	}
	if o.Scale != 0 {
		merged.Scale = o.Scale
	}
	if o.Margin != nil {
		m := *merged.Margin
		if o.Margin.Top != "" {
			m.Top = o.Margin.Top
		}
		if o.Margin.Right != "" {
			m.Right = o.Margin.Right
		}
		if o.Margin.Bottom != "" {
			m.Bottom = o.Margin.Bottom
		}
		if o.Margin.Left != "" {
			m.Left = o.Margin.Left
		}
		merged.Margin = &m
	}
	merged.Landscape = o.Landscape
	merged.PreferCSSPageSize = o.PreferCSSPageSize
	merged.DisplayHeaderFooter = o.DisplayHeaderFooter
	merged.HeaderTemplate = o.HeaderTemplate
	merged.FooterTemplate = o.FooterTemplate
	merged.PageRanges = o.PageRanges

	return merged
}

// PrintParams resolves the options to inches. Width and Height must be set
// together and then take precedence over Format. Call it on merged options.
func (o PDFOptions) PrintParams() (browser.PrintParams, error) {
	var p browser.PrintParams

	if (o.Width == "") != (o.Height == "") {
		return p, pdfOptionError("size", fmt.Errorf("width and height must be set together"))
	}

	switch {
	case o.Width != "":
		w, err := ParseLength(string(o.Width))
		if err != nil {
			return p, pdfOptionError("width", err)
		}
		h, err := ParseLength(string(o.Height))
		if err != nil {
			return p, pdfOptionError("height", err)
		}
		if w == 0 || h == 0 {
			return p, pdfOptionError("size", fmt.Errorf("width and height must be positive"))
		}
		p.PaperWidth, p.PaperHeight = w, h
	default:
		format := o.Format
		if format == "" {
			format = DefaultPaperFormat
		}
		size, ok := paperFormats[strings.ToLower(format)]
		if !ok {
			return p, pdfOptionError("format", fmt.Errorf("unknown paper format %q", format))
		}
		p.PaperWidth, p.PaperHeight = size.width, size.height
	}

	margin := Margin{}
	if o.Margin != nil {
		margin = *o.Margin
	}
	sides := []struct {
		name  string
		value Length
		dst   *float64
	}{
		{"margin.top", margin.Top, &p.MarginTop},
		{"margin.right", margin.Right, &p.MarginRight},
		{"margin.bottom", margin.Bottom, &p.MarginBottom},
		{"margin.left", margin.Left, &p.MarginLeft},
	}
	for _, side := range sides {
		if side.value == "" {
			continue
		}
		v, err := ParseLength(string(side.value))
		if err != nil {
			return p, pdfOptionError(side.name, err)
		}
		*side.dst = v
	}

	if o.Scale != 0 && (o.Scale < MinScale || o.Scale > MaxScale) {
		return p, pdfOptionError("scale", fmt.Errorf("%v outside [%v, %v]", o.Scale, MinScale, MaxScale))
	}
	p.Scale = o.Scale

	p.PrintBackground = o.PrintBackground != nil && *o.PrintBackground
	p.Landscape = o.Landscape
	p.PreferCSSPageSize = o.PreferCSSPageSize
	p.DisplayHeaderFooter = o.DisplayHeaderFooter
	p.HeaderTemplate = o.HeaderTemplate
	p.FooterTemplate = o.FooterTemplate
	p.PageRanges = o.PageRanges

	return p, nil
}

// ParseLength converts a CSS absolute length to inches. A bare number is
// taken as pixels.
func ParseLength(s string) (float64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty length")
	}

	unit := "px"
	num := s
	for u := range cssUnitsPerInch {
		if strings.HasSuffix(s, u) {
			unit = u
			num = strings.TrimSpace(strings.TrimSuffix(s, u))
			break
		}
	}

	v, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid length %q", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative length %q", s)
	}
	return v / cssUnitsPerInch[unit], nil
}

func pdfOptionError(field string, err error) error {
	return newError(KindValidation, "pdfOptions", fmt.Errorf("%s: %w", field, err))
}
