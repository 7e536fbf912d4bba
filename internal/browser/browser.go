package browser

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for browser operations.
var (
	ErrLaunch = errors.New("browser launch failed")
	ErrClosed = errors.New("browser manager is shut down")
	ErrNewTab = errors.New("failed to open browser tab")
)

// Launcher starts a browser process.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

// Browser is a running browser process.
// Disconnected is closed once the control connection to the process is lost.
type Browser interface {
	NewTab(ctx context.Context) (Tab, error)
	Disconnected() <-chan struct{}
	Close() error
}

// Tab is one isolated page. It is used by a single goroutine.
type Tab interface {
	SetViewport(ctx context.Context, vp Viewport) error
	// Load replaces the document with html and returns once network
	// activity has been quiet for idle. A deadline on ctx bounds the wait.
	Load(ctx context.Context, html string, idle time.Duration) error
	AddStyle(ctx context.Context, css string) error
	EmulateMedia(ctx context.Context, media string) error
	// Eval runs a JavaScript function expression with args and returns
	// its result encoded as JSON.
	Eval(ctx context.Context, js string, args ...any) ([]byte, error)
	HTML(ctx context.Context) (string, error)
	PDF(ctx context.Context, params PrintParams) ([]byte, error)
	Close() error
}

// Viewport is the layout viewport in CSS pixels.
type Viewport struct {
	Width  int
	Height int
	Scale  float64
}

// A4Viewport is an A4 sheet at 96 DPI.
var A4Viewport = Viewport{Width: 794, Height: 1123, Scale: 1}

// PrintParams are the resolved print settings. Lengths are in inches.
type PrintParams struct {
	PaperWidth          float64
	PaperHeight         float64
	MarginTop           float64
	MarginRight         float64
	MarginBottom        float64
	MarginLeft          float64
	Landscape           bool
	PrintBackground     bool
	PreferCSSPageSize   bool
	DisplayHeaderFooter bool
	Scale               float64
	HeaderTemplate      string
	FooterTemplate      string
	PageRanges          string
}
