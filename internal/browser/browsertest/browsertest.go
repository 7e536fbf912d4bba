// Package browsertest provides in-memory implementations of the browser
// interfaces for tests that must not start a real browser.
package browsertest

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alnah/go-docgen/internal/browser"
)

// Launcher counts launches and returns a fresh Browser each time.
type Launcher struct {
	// Err, when set, is returned by every Launch.
	Err error
	// Delay is slept inside Launch to widen race windows.
	Delay time.Duration
	// Tab configures tabs opened by launched browsers.
	Tab TabConfig

	mu       sync.Mutex
	browsers []*Browser
	launches atomic.Int64
}

// Launch implements browser.Launcher.
func (l *Launcher) Launch(ctx context.Context) (browser.Browser, error) {
	l.launches.Add(1)
	if l.Delay > 0 {
		select {
		case <-time.After(l.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if l.Err != nil {
		return nil, l.Err
	}

	b := NewBrowser(l.Tab)
	l.mu.Lock()
	l.browsers = append(l.browsers, b)
	l.mu.Unlock()
	return b, nil
}

// Launches returns the number of Launch calls.
func (l *Launcher) Launches() int {
	return int(l.launches.Load())
}

// Browsers returns every browser launched so far, oldest first.
func (l *Launcher) Browsers() []*Browser {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Browser(nil), l.browsers...)
}

// Last returns the most recently launched browser, or nil.
func (l *Launcher) Last() *Browser {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.browsers) == 0 {
		return nil
	}
	return l.browsers[len(l.browsers)-1]
}

// Browser is a fake browser.Browser.
type Browser struct {
	cfg          TabConfig
	disconnected chan struct{}
	once         sync.Once

	// NewTabErr, when set, fails NewTab.
	NewTabErr error

	mu     sync.Mutex
	tabs   []*Tab
	closed bool
}

// NewBrowser creates a Browser whose tabs use cfg.
func NewBrowser(cfg TabConfig) *Browser {
	return &Browser{cfg: cfg, disconnected: make(chan struct{})}
}

// NewTab implements browser.Browser.
func (b *Browser) NewTab(ctx context.Context) (browser.Tab, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.NewTabErr != nil {
		return nil, b.NewTabErr
	}
	if b.closed {
		return nil, errors.New("browser closed")
	}
	t := &Tab{cfg: b.cfg}
	b.tabs = append(b.tabs, t)
	return t, nil
}

// Disconnected implements browser.Browser.
func (b *Browser) Disconnected() <-chan struct{} {
	return b.disconnected
}

// Close implements browser.Browser; it also signals disconnection.
func (b *Browser) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.Crash()
	return nil
}

// Crash simulates the process dying.
func (b *Browser) Crash() {
	b.once.Do(func() { close(b.disconnected) })
}

// Closed reports whether Close was called.
func (b *Browser) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Tabs returns every tab opened on this browser.
func (b *Browser) Tabs() []*Tab {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Tab(nil), b.tabs...)
}

// OpenTabs counts tabs that were opened and not closed.
func (b *Browser) OpenTabs() int {
	n := 0
	for _, t := range b.Tabs() {
		if !t.Closed() {
			n++
		}
	}
	return n
}

// TabConfig scripts the behaviour of fake tabs.
type TabConfig struct {
	// ScrollHeight is what the pagination measurement reports.
	// Zero means one viewport.
	ScrollHeight int
	// LoadErr fails Load.
	LoadErr error
	// LoadBlocks makes Load wait for ctx to end.
	LoadBlocks bool
	// LoadDelay is slept inside Load, honouring ctx.
	LoadDelay time.Duration
	// PDF is returned by PDF. Defaults to a minimal PDF header.
	PDF []byte
	// EvalErr fails Eval.
	EvalErr error
	// CloseErr fails Close.
	CloseErr error
}

// Tab is a fake browser.Tab that records what it was asked to do.
type Tab struct {
	cfg TabConfig

	mu          sync.Mutex
	viewport    browser.Viewport
	html        string
	styles      []string
	media       string
	totalPages  string
	printParams *browser.PrintParams
	closed      bool
}

// SetViewport implements browser.Tab.
func (t *Tab) SetViewport(_ context.Context, vp browser.Viewport) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.viewport = vp
	return nil
}

// Load implements browser.Tab.
func (t *Tab) Load(ctx context.Context, html string, _ time.Duration) error {
	if t.cfg.LoadBlocks {
		<-ctx.Done()
		return ctx.Err()
	}
	if t.cfg.LoadDelay > 0 {
		select {
		case <-time.After(t.cfg.LoadDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if t.cfg.LoadErr != nil {
		return t.cfg.LoadErr
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.html = html
	return nil
}

// AddStyle implements browser.Tab.
func (t *Tab) AddStyle(_ context.Context, css string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.styles = append(t.styles, css)
	return nil
}

// EmulateMedia implements browser.Tab.
func (t *Tab) EmulateMedia(_ context.Context, media string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.media = media
	return nil
}

// Eval implements browser.Tab. It understands the two scripts the render
// session runs: the page measurement and the total-pages substitution,
// told apart by their arguments.
func (t *Tab) Eval(_ context.Context, _ string, args ...any) ([]byte, error) {
	if t.cfg.EvalErr != nil {
		return nil, t.cfg.EvalErr
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(args) == 0 {
		h := t.cfg.ScrollHeight
		if h == 0 {
			h = t.viewport.Height
		}
		return json.Marshal(map[string]int{
			"scrollHeight":   h,
			"viewportHeight": t.viewport.Height,
		})
	}

	if s, ok := args[len(args)-1].(string); ok {
		t.totalPages = s
		t.html = strings.ReplaceAll(t.html, `<span class="totalPages"></span>`, `<span class="totalPages">`+s+`</span>`)
	}
	return []byte("null"), nil
}

// HTML implements browser.Tab.
func (t *Tab) HTML(_ context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.html, nil
}

// PDF implements browser.Tab.
func (t *Tab) PDF(_ context.Context, params browser.PrintParams) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.printParams = &params
	if t.cfg.PDF != nil {
		return t.cfg.PDF, nil
	}
	return []byte("%PDF-1.4\n%fake\n"), nil
}

// Close implements browser.Tab.
func (t *Tab) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return t.cfg.CloseErr
}

// Closed reports whether Close was called.
func (t *Tab) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Viewport returns the last viewport set.
func (t *Tab) Viewport() browser.Viewport {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.viewport
}

// Styles returns the stylesheets added after load.
func (t *Tab) Styles() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.styles...)
}

// Media returns the emulated media type.
func (t *Tab) Media() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.media
}

// TotalPages returns the value written into total-pages placeholders.
func (t *Tab) TotalPages() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalPages
}

// PrintParams returns the parameters of the last PDF call, or nil.
func (t *Tab) PrintParams() *browser.PrintParams {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.printParams
}

// Compile-time interface checks.
var (
	_ browser.Launcher = (*Launcher)(nil)
	_ browser.Browser  = (*Browser)(nil)
	_ browser.Tab      = (*Tab)(nil)
)
