// Package deps checks that stylesheet and script URLs referenced by a
// render request are reachable. Failures are reported, never returned as
// errors: an unreachable dependency degrades the document, it does not
// stop the render.
package deps

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Defaults for Checker.
const (
	DefaultTimeout     = 5 * time.Second
	DefaultConcurrency = 8
)

// Failure records one unreachable URL.
type Failure struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// Checker issues existence checks against dependency URLs.
type Checker struct {
	client      *http.Client
	timeout     time.Duration
	concurrency int
	logger      *zap.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithClient sets the HTTP client. Its Timeout is ignored in favour of the
// per-URL timeout.
func WithClient(c *http.Client) Option {
	return func(ch *Checker) {
		if c != nil {
			ch.client = c
		}
	}
}

// WithTimeout bounds each URL check.
func WithTimeout(d time.Duration) Option {
	return func(ch *Checker) {
		if d > 0 {
			ch.timeout = d
		}
	}
}

// WithConcurrency bounds how many checks run at once.
func WithConcurrency(n int) Option {
	return func(ch *Checker) {
		if n > 0 {
			ch.concurrency = n
		}
	}
}

// WithLogger sets the logger used to report failures.
func WithLogger(l *zap.Logger) Option {
	return func(ch *Checker) {
		if l != nil {
			ch.logger = l
		}
	}
}

// NewChecker creates a Checker.
func NewChecker(opts ...Option) *Checker {
	c := &Checker{
		client:      &http.Client{},
		timeout:     DefaultTimeout,
		concurrency: DefaultConcurrency,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Validate checks every URL and returns the failures in input order.
// Checks run concurrently; an empty slice means everything answered.
func (c *Checker) Validate(ctx context.Context, urls []string) []Failure {
	reasons := make([]string, len(urls))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, u := range urls {
		g.Go(func() error {
			reasons[i] = c.check(ctx, u)
			return nil
		})
	}
	_ = g.Wait()

	var failures []Failure
	for i, reason := range reasons {
		if reason == "" {
			continue
		}
		failures = append(failures, Failure{URL: urls[i], Reason: reason})
		c.logger.Warn("dependency unreachable", zap.String("url", urls[i]), zap.String("reason", reason))
	}
	return failures
}

// check returns an empty string on success, or why the URL failed.
func (c *Checker) check(ctx context.Context, raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Sprintf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Sprintf("unsupported scheme %q", u.Scheme)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	status, err := c.request(ctx, http.MethodHead, raw)
	// Some servers refuse HEAD outright.
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
		status, err = c.request(ctx, http.MethodGet, raw)
	}
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Sprintf("timed out after %s", c.timeout)
		}
		return err.Error()
	}
	if status < 200 || status > 399 {
		return fmt.Sprintf("status %d", status)
	}
	return ""
}

func (c *Checker) request(ctx context.Context, method, target string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}
