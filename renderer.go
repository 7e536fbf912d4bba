package docgen

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-docgen/internal/browser"
	"github.com/alnah/go-docgen/internal/deps"
	"github.com/alnah/go-docgen/internal/pipeline"
	"github.com/alnah/go-docgen/internal/session"
)

// Renderer defaults.
const (
	DefaultLoadTimeout    = session.DefaultLoadTimeout
	DefaultRequestTimeout = 60 * time.Second
	DefaultNetworkIdle    = session.DefaultNetworkIdle
)

// defaultInlineCSS is written into every assembled document's <style> block.
const defaultInlineCSS = `html { -webkit-print-color-adjust: exact; print-color-adjust: exact; }`

// ErrRendererClosed is wrapped by renders attempted after Close.
var ErrRendererClosed = errors.New("renderer is closed")

// BrowserProvider hands out the live shared browser. *browser.Manager
// implements it.
type BrowserProvider interface {
	EnsureReady(ctx context.Context) (browser.Browser, error)
}

// TemplateEngine turns a layout and its data into HTML.
type TemplateEngine interface {
	Render(ctx context.Context, source string, data map[string]any) (string, error)
}

// DependencyChecker reports unreachable dependency URLs.
type DependencyChecker interface {
	Validate(ctx context.Context, urls []string) []deps.Failure
}

// Observer receives render events, typically to feed metrics.
type Observer interface {
	SessionStarted()
	SessionEnded()
	RenderCompleted(format OutputFormat, outcome string, d time.Duration)
	DependencyFailed(n int)
}

type nopObserver struct{}

func (nopObserver) SessionStarted() {}
func (nopObserver) SessionEnded() {}
func (nopObserver) RenderCompleted(OutputFormat, string, time.Duration) {}
func (nopObserver) DependencyFailed(int) {}

// OutcomeSuccess is the outcome reported for successful renders; failed
// renders report their ErrorKind name.
const OutcomeSuccess = "success"

// RenderStats is a point-in-time view of render activity.
type RenderStats struct {
	InFlight    int64
	Succeeded   int64
	Failed      int64
	MaxSessions int
}

// Renderer composes dependency checks, template rendering, document
// assembly and a browser session into one call. It is safe for concurrent
// use; concurrent sessions are bounded by the max-sessions ceiling.
type Renderer struct {
	browsers       BrowserProvider
	engine         TemplateEngine
	checker        DependencyChecker
	logger         *zap.Logger
	observer       Observer
	loadTimeout    time.Duration
	requestTimeout time.Duration
	networkIdle    time.Duration
	stylesheet     string
	inlineCSS      string
	assetBaseURL   string
	maxSessions    int

	admission *admission
	wg        sync.WaitGroup
	closeMu   sync.RWMutex
	closed    bool

	inFlight  atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets the logger. Nil keeps the no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithLoadTimeout bounds the network-idle wait after setting content.
func WithLoadTimeout(d time.Duration) Option {
	return func(r *Renderer) {
		if d > 0 {
			r.loadTimeout = d
		}
	}
}

// WithRequestTimeout bounds a whole render, admission wait included.
func WithRequestTimeout(d time.Duration) Option {
	return func(r *Renderer) {
		if d > 0 {
			r.requestTimeout = d
		}
	}
}

// WithNetworkIdle sets how long the network must stay quiet for the
// document to count as loaded.
func WithNetworkIdle(d time.Duration) Option {
	return func(r *Renderer) {
		if d > 0 {
			r.networkIdle = d
		}
	}
}

// WithStylesheet sets CSS injected after each document loads.
func WithStylesheet(css string) Option {
	return func(r *Renderer) { r.stylesheet = css }
}

// WithInlineCSS replaces the CSS written into each document's <style> block.
func WithInlineCSS(css string) Option {
	return func(r *Renderer) { r.inlineCSS = css }
}

// WithDependencyChecker enables best-effort dependency checks.
func WithDependencyChecker(c DependencyChecker) Option {
	return func(r *Renderer) { r.checker = c }
}

// WithTemplateEngine replaces the handlebars engine.
func WithTemplateEngine(e TemplateEngine) Option {
	return func(r *Renderer) {
		if e != nil {
			r.engine = e
		}
	}
}

// WithMaxSessions sets the concurrent session ceiling; see ResolveMaxSessions.
func WithMaxSessions(n int) Option {
	return func(r *Renderer) { r.maxSessions = n }
}

// WithAssetBaseURL resolves relative asset references in rendered
// templates against base.
func WithAssetBaseURL(base string) Option {
	return func(r *Renderer) { r.assetBaseURL = base }
}

// WithObserver registers a render event observer.
func WithObserver(o Observer) Option {
	return func(r *Renderer) {
		if o != nil {
			r.observer = o
		}
	}
}

// NewRenderer creates a Renderer drawing browsers from p.
func NewRenderer(p BrowserProvider, opts ...Option) *Renderer {
	r := &Renderer{
		browsers:       p,
		engine:         pipeline.NewEngine(),
		logger:         zap.NewNop(),
		observer:       nopObserver{},
		loadTimeout:    DefaultLoadTimeout,
		requestTimeout: DefaultRequestTimeout,
		networkIdle:    DefaultNetworkIdle,
		inlineCSS:      defaultInlineCSS,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.maxSessions = ResolveMaxSessions(r.maxSessions)
	r.admission = newAdmission(r.maxSessions)
	return r
}

// Render produces the artifact for req. Failures are returned as *Error;
// no partial artifact is ever returned. Panics inside the pipeline are
// recovered and reported as KindInternal.
func (r *Renderer) Render(ctx context.Context, req RenderRequest) (art *Artifact, err error) {
	start := time.Now()
	log := r.logger.With(zap.String("request_id", req.RequestID), zap.Stringer("format", req.Format))

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("render panic", zap.Any("panic", rec), zap.ByteString("stack", debug.Stack()))
			art, err = nil, newError(KindInternal, "render", fmt.Errorf("panic: %v", rec))
		}
		r.finish(log, req.Format, start, art, err)
	}()

	r.closeMu.RLock()
	if r.closed {
		r.closeMu.RUnlock()
		return nil, newError(KindInternal, "render", ErrRendererClosed)
	}
	r.wg.Add(1)
	r.closeMu.RUnlock()
	defer r.wg.Done()

	r.inFlight.Add(1)
	defer r.inFlight.Add(-1)

	job, err := r.prepare(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.requestTimeout)
	defer cancel()

	depsDone := r.checkDependencies(ctx, req, log)

	content, err := r.engine.Render(ctx, req.Layout, req.Data)
	if err != nil {
		return nil, wrap("template", err)
	}

	if r.assetBaseURL != "" {
		content, err = pipeline.RewriteRelativeURLs(content, r.assetBaseURL)
		if err != nil {
			return nil, newError(KindInternal, "rewrite", err)
		}
	}

	job.HTML = pipeline.Assemble(content, r.inlineCSS, toPipelineDeps(req.Dependencies))

	res, err := r.runSession(ctx, job, log)
	if err != nil {
		return nil, err
	}

	// Checks still running at the deadline keep logging in the background.
	select {
	case <-depsDone:
	case <-ctx.Done():
		log.Debug("returning artifact before dependency checks finished")
	}
	return &Artifact{Format: req.Format, Body: res.Body, Pages: res.Pages}, nil
}

// prepare validates req and resolves everything that does not need the
// browser, so bad input never reaches it.
func (r *Renderer) prepare(req RenderRequest) (session.Job, error) {
	job := session.Job{
		Stylesheet:  r.stylesheet,
		LoadTimeout: r.loadTimeout,
		NetworkIdle: r.networkIdle,
	}

	if req.Layout == "" {
		return job, newError(KindValidation, "validate", fmt.Errorf("layout template is required"))
	}

	switch req.Format {
	case FormatHTML:
		job.Format = session.FormatHTML
	case FormatPDF:
		job.Format = session.FormatPDF
		params, err := MergePDFOptions(req.PDF).PrintParams()
		if err != nil {
			return job, err
		}
		job.PDF = params
	default:
		return job, newError(KindUnsupportedFormat, "validate", fmt.Errorf("%s", req.Format))
	}

	return job, nil
}

// checkDependencies runs the dependency checks in the background. The
// returned channel is closed when they are done.
func (r *Renderer) checkDependencies(ctx context.Context, req RenderRequest, log *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if r.checker == nil || len(req.Dependencies) == 0 {
		close(done)
		return done
	}

	urls := make([]string, 0, len(req.Dependencies))
	for _, d := range req.Dependencies {
		if d.URL != "" {
			urls = append(urls, d.URL)
		}
	}

	// Checks outlive a failed render so their warnings are still logged.
	checkCtx := context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer close(done)
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("dependency check panic", zap.Any("panic", rec), zap.ByteString("stack", debug.Stack()))
			}
		}()
		failures := r.checker.Validate(checkCtx, urls)
		if len(failures) == 0 {
			return
		}
		r.observer.DependencyFailed(len(failures))
		for _, f := range failures {
			log.Warn("dependency check failed; rendering anyway",
				zap.String("url", f.URL), zap.String("reason", f.Reason))
		}
	}()
	return done
}

func (r *Renderer) runSession(ctx context.Context, job session.Job, log *zap.Logger) (session.Result, error) {
	release, err := r.admission.acquire(ctx)
	if err != nil {
		return session.Result{}, wrap("admission", err)
	}
	defer release()

	r.observer.SessionStarted()
	defer r.observer.SessionEnded()

	b, err := r.browsers.EnsureReady(ctx)
	if err != nil {
		return session.Result{}, wrap("browser", err)
	}

	res, err := session.Run(ctx, b, job, log)
	if err != nil {
		return session.Result{}, wrap("session", err)
	}
	return res, nil
}

func (r *Renderer) finish(log *zap.Logger, format OutputFormat, start time.Time, art *Artifact, err error) {
	d := time.Since(start)
	if err != nil {
		r.failed.Add(1)
		kind := KindOf(err)
		r.observer.RenderCompleted(format, kind.String(), d)
		log.Error("render failed",
			zap.Stringer("kind", kind),
			zap.Duration("duration", d),
			zap.Error(err),
		)
		return
	}

	r.succeeded.Add(1)
	r.observer.RenderCompleted(format, OutcomeSuccess, d)
	log.Info("render complete",
		zap.Duration("duration", d),
		zap.Int("bytes", len(art.Body)),
		zap.Int("pages", art.Pages),
	)
}

// Stats returns render counters.
func (r *Renderer) Stats() RenderStats {
	return RenderStats{
		InFlight:    r.inFlight.Load(),
		Succeeded:   r.succeeded.Load(),
		Failed:      r.failed.Load(),
		MaxSessions: r.maxSessions,
	}
}

// Close rejects new renders and waits for in-flight ones. The browser
// provider is not closed; its owner shuts it down.
func (r *Renderer) Close() error {
	r.closeMu.Lock()
	r.closed = true
	r.closeMu.Unlock()
	r.wg.Wait()
	return nil
}

func toPipelineDeps(in []Dependency) []pipeline.Dependency {
	out := make([]pipeline.Dependency, len(in))
	for i, d := range in {
		kind := pipeline.DependencyKind(-1)
		switch d.Kind {
		case Stylesheet:
			kind = pipeline.Stylesheet
		case Script:
			kind = pipeline.Script
		}
		out[i] = pipeline.Dependency{Kind: kind, URL: d.URL}
	}
	return out
}

// Compile-time interface checks.
var (
	_ BrowserProvider   = (*browser.Manager)(nil)
	_ TemplateEngine    = (*pipeline.Engine)(nil)
	_ DependencyChecker = (*deps.Checker)(nil)
)
