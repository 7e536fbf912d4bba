package browser

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultMaxLifetime bounds how long one browser process is reused.
const DefaultMaxLifetime = 12 * time.Hour

// Stats is a point-in-time view of the manager's counters.
type Stats struct {
	Launches    int64
	Restarts    int64 // age-based recycles
	Disconnects int64
	Alive       bool
	StartedAt   time.Time // zero when no browser is running
}

// handle is one browser generation.
type handle struct {
	browser   Browser
	createdAt time.Time
	dead      atomic.Bool
	retired   atomic.Bool // closed on purpose; its disconnect is expected
}

// Manager owns the single shared browser process.
// It is safe for concurrent use.
type Manager struct {
	launcher    Launcher
	logger      *zap.Logger
	maxLifetime time.Duration
	now         func() time.Time

	// sem serializes launches. A channel rather than a mutex so that
	// waiting callers can give up when their context ends.
	sem chan struct{}

	mu      sync.Mutex
	current *handle
	closed  bool

	launches    atomic.Int64
	restarts    atomic.Int64
	disconnects atomic.Int64
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Nil keeps the no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMaxLifetime sets the age after which the browser is recycled.
// Non-positive values keep DefaultMaxLifetime.
func WithMaxLifetime(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.maxLifetime = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a Manager. No process is started until EnsureReady.
func NewManager(l Launcher, opts ...Option) *Manager {
	m := &Manager{
		launcher:    l,
		logger:      zap.NewNop(),
		maxLifetime: DefaultMaxLifetime,
		now:         time.Now,
		sem:         make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// EnsureReady returns the live browser, launching or replacing it when
// there is none, it has disconnected, or it is older than the maximum
// lifetime. Concurrent callers share a single launch.
func (m *Manager) EnsureReady(ctx context.Context) (Browser, error) {
	if h := m.usable(); h != nil {
		return h.browser, nil
	}

	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-m.sem }()

	// Another caller may have launched while we waited.
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	stale := m.current
	if stale != nil && m.fresh(stale) {
		m.mu.Unlock()
		return stale.browser, nil
	}
	m.current = nil
	m.mu.Unlock()

	if stale != nil {
		m.retire(stale)
	}

	return m.launch(ctx)
}

// usable returns the current handle if it can serve requests as is.
func (m *Manager) usable() *handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || m.current == nil || !m.fresh(m.current) {
		return nil
	}
	return m.current
}

// fresh reports whether h is alive and within its lifetime. Callers hold mu.
func (m *Manager) fresh(h *handle) bool {
	return !h.dead.Load() && m.now().Sub(h.createdAt) < m.maxLifetime
}

// retire closes a handle that is being replaced.
func (m *Manager) retire(h *handle) {
	h.retired.Store(true)
	if h.dead.Load() {
		return
	}

	m.restarts.Add(1)
	m.logger.Info("recycling browser",
		zap.Duration("age", m.now().Sub(h.createdAt)),
		zap.Duration("max_lifetime", m.maxLifetime),
	)
	if err := h.browser.Close(); err != nil {
		m.logger.Warn("closing recycled browser", zap.Error(err))
	}
}

func (m *Manager) launch(ctx context.Context) (Browser, error) {
	start := m.now()
	b, err := m.launcher.Launch(ctx)
	if err != nil {
		if errors.Is(err, ErrLaunch) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrLaunch, err)
	}

	h := &handle{browser: b, createdAt: m.now()}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		h.retired.Store(true)
		_ = b.Close()
		return nil, ErrClosed
	}
	m.current = h
	m.mu.Unlock()

	n := m.launches.Add(1)
	m.logger.Info("browser launched",
		zap.Int64("generation", n),
		zap.Duration("startup", m.now().Sub(start)),
	)

	go m.watch(h)
	return b, nil
}

// watch invalidates h when its process disconnects unexpectedly.
func (m *Manager) watch(h *handle) {
	defer func() {
		if rec := recover(); rec != nil {
			m.logger.Error("browser watcher panic", zap.Any("panic", rec), zap.ByteString("stack", debug.Stack()))
		}
	}()

	<-h.browser.Disconnected()
	if h.retired.Load() {
		return
	}
	h.dead.Store(true)
	m.disconnects.Add(1)

	m.mu.Lock()
	if m.current == h {
		m.current = nil
	}
	m.mu.Unlock()

	m.logger.Warn("browser disconnected; next request relaunches",
		zap.Duration("age", m.now().Sub(h.createdAt)),
	)
	// Reap whatever is left of the process.
	_ = h.browser.Close()
}

// Shutdown closes the browser and rejects further EnsureReady calls.
// It is safe to call more than once.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	h := m.current
	m.current = nil
	m.mu.Unlock()

	if h == nil {
		return nil
	}
	h.retired.Store(true)
	if err := h.browser.Close(); err != nil {
		return fmt.Errorf("closing browser: %w", err)
	}
	m.logger.Info("browser closed")
	return nil
}

// Healthy reports whether a live browser is running right now.
// It never launches one.
func (m *Manager) Healthy() bool {
	return m.usable() != nil
}

// Uptime returns how long the current browser has been running,
// or zero when none is.
func (m *Manager) Uptime() time.Duration {
	h := m.usable()
	if h == nil {
		return 0
	}
	return m.now().Sub(h.createdAt)
}

// Stats returns the manager's counters.
func (m *Manager) Stats() Stats {
	s := Stats{
		Launches:    m.launches.Load(),
		Restarts:    m.restarts.Load(),
		Disconnects: m.disconnects.Load(),
	}
	if h := m.usable(); h != nil {
		s.Alive = true
		s.StartedAt = h.createdAt
	}
	return s
}
