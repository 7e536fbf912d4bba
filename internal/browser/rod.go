package browser

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/alnah/go-docgen/internal/hints"
	"github.com/alnah/go-docgen/internal/process"
)

// RodLauncher starts Chrome through go-rod.
// Rod downloads a Chromium build on first use when no binary is configured.
type RodLauncher struct {
	bin       string
	noSandbox bool
	headless  bool
	logger    *zap.Logger
}

// RodOption configures a RodLauncher.
type RodOption func(*RodLauncher)

// WithBin uses a pre-installed browser binary.
func WithBin(path string) RodOption {
	return func(l *RodLauncher) { l.bin = path }
}

// WithNoSandbox disables the Chrome sandbox. Containers and CI runners
// without user namespaces need it; it removes process isolation.
func WithNoSandbox(enable bool) RodOption {
	return func(l *RodLauncher) { l.noSandbox = enable }
}

// WithHeadless toggles headless mode. Defaults to true.
func WithHeadless(enable bool) RodOption {
	return func(l *RodLauncher) { l.headless = enable }
}

// WithLaunchLogger sets the logger used for process lifecycle events.
func WithLaunchLogger(logger *zap.Logger) RodOption {
	return func(l *RodLauncher) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewRodLauncher creates a RodLauncher.
func NewRodLauncher(opts ...RodOption) *RodLauncher {
	l := &RodLauncher{headless: true, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Launch starts a browser process and connects to it.
func (l *RodLauncher) Launch(ctx context.Context) (Browser, error) {
	lc := launcher.New().
		Context(ctx).
		Headless(l.headless).
		NoSandbox(l.noSandbox).
		Set("disable-dev-shm-usage").
		Set("disable-gpu")
	if l.noSandbox {
		lc = lc.Set("disable-setuid-sandbox")
	}
	if l.bin != "" {
		lc = lc.Bin(l.bin)
	}

	u, err := lc.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v%s", ErrLaunch, err, hints.ForBrowserLaunch(l.noSandbox, l.bin))
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		kill(lc)
		return nil, fmt.Errorf("%w: connecting: %v%s", ErrLaunch, err, hints.ForBrowserLaunch(l.noSandbox, l.bin))
	}

	l.logger.Debug("browser process started", zap.Int("pid", lc.PID()), zap.String("control_url", u))

	rb := &rodBrowser{
		browser:      b,
		launcher:     lc,
		logger:       l.logger,
		disconnected: make(chan struct{}),
	}
	go rb.watch()
	return rb, nil
}

// kill terminates the process tree and removes the temporary profile.
func kill(lc *launcher.Launcher) {
	process.KillProcessGroup(lc.PID())
	lc.Kill()
	go lc.Cleanup()
}

// rodBrowser implements Browser.
type rodBrowser struct {
	browser      *rod.Browser
	launcher     *launcher.Launcher
	logger       *zap.Logger
	disconnected chan struct{}
	closeOnce    sync.Once
	closeErr     error
}

// watch drains the event stream; it ends when the websocket drops.
func (b *rodBrowser) watch() {
	for range b.browser.Event() {
	}
	close(b.disconnected)
}

func (b *rodBrowser) Disconnected() <-chan struct{} {
	return b.disconnected
}

func (b *rodBrowser) NewTab(ctx context.Context) (Tab, error) {
	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNewTab, err)
	}
	return &rodTab{page: page.Context(context.Background())}, nil
}

// Close asks the browser to exit, then makes sure the process tree is gone.
func (b *rodBrowser) Close() error {
	b.closeOnce.Do(func() {
		if err := b.browser.Close(); err != nil {
			b.closeErr = err
			b.logger.Debug("browser close request failed; killing process", zap.Error(err))
		}
		kill(b.launcher)
	})
	return b.closeErr
}

// rodTab implements Tab. page carries a background context; each call
// derives a per-operation page from the caller's ctx.
type rodTab struct {
	page *rod.Page
}

func (t *rodTab) SetViewport(ctx context.Context, vp Viewport) error {
	return t.page.Context(ctx).SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             vp.Width,
		Height:            vp.Height,
		DeviceScaleFactor: vp.Scale,
	})
}

func (t *rodTab) Load(ctx context.Context, html string, idle time.Duration) error {
	p := t.page.Context(ctx)

	// Long-lived connections never go idle.
	wait := p.WaitRequestIdle(idle, nil, nil, []proto.NetworkResourceType{
		proto.NetworkResourceTypeWebSocket,
		proto.NetworkResourceTypeEventSource,
	})
	if err := p.SetDocumentContent(html); err != nil {
		return err
	}
	wait()
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.WaitLoad()
}

func (t *rodTab) AddStyle(ctx context.Context, css string) error {
	return t.page.Context(ctx).AddStyleTag("", css)
}

func (t *rodTab) EmulateMedia(ctx context.Context, media string) error {
	return proto.EmulationSetEmulatedMedia{Media: media}.Call(t.page.Context(ctx))
}

func (t *rodTab) Eval(ctx context.Context, js string, args ...any) ([]byte, error) {
	res, err := t.page.Context(ctx).Eval(js, args...)
	if err != nil {
		return nil, err
	}
	return []byte(res.Value.JSON("", "")), nil
}

func (t *rodTab) HTML(ctx context.Context) (string, error) {
	markup, err := t.page.Context(ctx).HTML()
	if err != nil {
		return "", err
	}
	return "<!DOCTYPE html>\n" + markup, nil
}

func (t *rodTab) PDF(ctx context.Context, params PrintParams) ([]byte, error) {
	req := &proto.PagePrintToPDF{
		Landscape:           params.Landscape,
		DisplayHeaderFooter: params.DisplayHeaderFooter,
		PrintBackground:     params.PrintBackground,
		PreferCSSPageSize:   params.PreferCSSPageSize,
		PaperWidth:          floatPtr(params.PaperWidth),
		PaperHeight:         floatPtr(params.PaperHeight),
		MarginTop:           floatPtr(params.MarginTop),
		MarginRight:         floatPtr(params.MarginRight),
		MarginBottom:        floatPtr(params.MarginBottom),
		MarginLeft:          floatPtr(params.MarginLeft),
		PageRanges:          params.PageRanges,
		HeaderTemplate:      params.HeaderTemplate,
		FooterTemplate:      params.FooterTemplate,
	}
	if params.Scale > 0 {
		req.Scale = floatPtr(params.Scale)
	}

	reader, err := t.page.Context(ctx).PDF(req)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading PDF stream: %w", err)
	}
	return data, nil
}

// Close closes the tab with a background context so that an expired
// request context cannot leak it.
func (t *rodTab) Close() error {
	return t.page.Close()
}

func floatPtr(v float64) *float64 {
	return &v
}

// Compile-time interface checks.
var (
	_ Launcher = (*RodLauncher)(nil)
	_ Browser  = (*rodBrowser)(nil)
	_ Tab      = (*rodTab)(nil)
)
