// Package session drives one browser tab through a single render:
// load, style, paginate, extract, close.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-docgen/internal/browser"
	"github.com/alnah/go-docgen/internal/hints"
)

// Defaults applied when a Job leaves the field zero.
const (
	DefaultLoadTimeout = 30 * time.Second
	DefaultNetworkIdle = 500 * time.Millisecond
)

// Sentinel errors for render sessions.
var (
	ErrLoadTimeout       = errors.New("document did not settle before the load deadline")
	ErrUnsupportedFormat = errors.New("unsupported output format")
)

// Format selects the artifact a session extracts.
type Format int

const (
	FormatHTML Format = iota
	FormatPDF
)

func (f Format) String() string {
	switch f {
	case FormatHTML:
		return "html"
	case FormatPDF:
		return "pdf"
	default:
		return "unknown(" + strconv.Itoa(int(f)) + ")"
	}
}

// Job is the input of one session.
type Job struct {
	HTML        string
	Stylesheet  string // injected after load; empty skips the step
	Format      Format
	PDF         browser.PrintParams
	LoadTimeout time.Duration
	NetworkIdle time.Duration
}

// Result is the extracted artifact.
type Result struct {
	Body  []byte
	Pages int // estimated from scroll height, see paginate
}

const measureJS = `() => ({
	scrollHeight: Math.max(
		document.documentElement.scrollHeight,
		document.body ? document.body.scrollHeight : 0
	),
	viewportHeight: window.innerHeight
})`

const fillTotalPagesJS = `(total) => {
	for (const el of document.querySelectorAll(".totalPages")) {
		el.textContent = total;
	}
}`

// Run renders job in a fresh tab of b. The tab is closed on every path;
// a failure to close it is logged and never replaces the result.
func Run(ctx context.Context, b browser.Browser, job Job, logger *zap.Logger) (Result, error) {
	if job.Format != FormatHTML && job.Format != FormatPDF {
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, job.Format)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	tab, err := b.NewTab(ctx)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if cerr := tab.Close(); cerr != nil {
			logger.Warn("closing tab", zap.Error(cerr))
		}
	}()

	if err := tab.SetViewport(ctx, browser.A4Viewport); err != nil {
		return Result{}, fmt.Errorf("setting viewport: %w", err)
	}

	if err := load(ctx, tab, job); err != nil {
		return Result{}, err
	}

	if job.Stylesheet != "" {
		if err := tab.AddStyle(ctx, job.Stylesheet); err != nil {
			return Result{}, fmt.Errorf("injecting stylesheet: %w", err)
		}
	}

	if err := tab.EmulateMedia(ctx, "screen"); err != nil {
		return Result{}, fmt.Errorf("emulating screen media: %w", err)
	}

	pages, err := paginate(ctx, tab)
	if err != nil {
		return Result{}, err
	}

	body, err := extract(ctx, tab, job)
	if err != nil {
		return Result{}, err
	}
	return Result{Body: body, Pages: pages}, nil
}

// load sets the document and waits for the network to go quiet, bounded by
// the job's load timeout. Only expiry of that bound maps to ErrLoadTimeout;
// an expired parent context is returned as is.
func load(ctx context.Context, tab browser.Tab, job Job) error {
	timeout := job.LoadTimeout
	if timeout <= 0 {
		timeout = DefaultLoadTimeout
	}
	idle := job.NetworkIdle
	if idle <= 0 {
		idle = DefaultNetworkIdle
	}

	loadCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := tab.Load(loadCtx, job.HTML, idle)
	if err == nil {
		return nil
	}
	if ctx.Err() == nil && errors.Is(loadCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w (%s)%s", ErrLoadTimeout, timeout, hints.ForLoadTimeout())
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("loading document: %w", err)
}

type measurement struct {
	ScrollHeight   float64 `json:"scrollHeight"`
	ViewportHeight float64 `json:"viewportHeight"`
}

// paginate estimates the page count as scroll height over viewport height
// and writes it into every .totalPages element. This approximates print
// pagination; it does not reproduce it.
func paginate(ctx context.Context, tab browser.Tab) (int, error) {
	raw, err := tab.Eval(ctx, measureJS)
	if err != nil {
		return 0, fmt.Errorf("measuring document: %w", err)
	}

	var m measurement
	if err := json.Unmarshal(raw, &m); err != nil {
		return 0, fmt.Errorf("measuring document: %w", err)
	}

	pages := PageCount(m.ScrollHeight, m.ViewportHeight)
	if _, err := tab.Eval(ctx, fillTotalPagesJS, strconv.Itoa(pages)); err != nil {
		return 0, fmt.Errorf("filling total pages: %w", err)
	}
	return pages, nil
}

// PageCount returns ceil(scroll/viewport), at least 1.
func PageCount(scrollHeight, viewportHeight float64) int {
	if viewportHeight <= 0 || scrollHeight <= 0 {
		return 1
	}
	return max(1, int(math.Ceil(scrollHeight/viewportHeight)))
}

func extract(ctx context.Context, tab browser.Tab, job Job) ([]byte, error) {
	if job.Format == FormatHTML {
		html, err := tab.HTML(ctx)
		if err != nil {
			return nil, fmt.Errorf("serializing document: %w", err)
		}
		return []byte(html), nil
	}

	data, err := tab.PDF(ctx, job.PDF)
	if err != nil {
		return nil, fmt.Errorf("printing PDF: %w", err)
	}
	return data, nil
}
