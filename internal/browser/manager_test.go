package browser_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alnah/go-docgen/internal/browser"
	"github.com/alnah/go-docgen/internal/browser/browsertest"
)

// fakeClock is a settable clock safe for concurrent reads.
type fakeClock struct {
	now atomic.Int64
}

func newFakeClock() *fakeClock {
	c := &fakeClock{}
	c.now.Store(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano())
	return c
}

func (c *fakeClock) Now() time.Time          { return time.Unix(0, c.now.Load()).UTC() }
func (c *fakeClock) Advance(d time.Duration) { c.now.Add(int64(d)) }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestManager_ConcurrentEnsureReadyLaunchesOnce(t *testing.T) {
	t.Parallel()

	l := &browsertest.Launcher{Delay: 20 * time.Millisecond}
	m := browser.NewManager(l)
	defer func() { _ = m.Shutdown() }()

	const callers = 32
	var wg sync.WaitGroup
	got := make([]browser.Browser, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], errs[i] = m.EnsureReady(context.Background())
		}(i)
	}
	wg.Wait()

	if n := l.Launches(); n != 1 {
		t.Fatalf("Launches() = %d, want 1", n)
	}
	for i := range callers {
		if errs[i] != nil {
			t.Fatalf("caller %d: EnsureReady() error = %v", i, errs[i])
		}
		if got[i] != got[0] {
			t.Fatalf("caller %d got a different browser", i)
		}
	}
}

func TestManager_DisconnectTriggersOneRelaunch(t *testing.T) {
	t.Parallel()

	l := &browsertest.Launcher{}
	m := browser.NewManager(l)
	defer func() { _ = m.Shutdown() }()

	first, err := m.EnsureReady(context.Background())
	if err != nil {
		t.Fatalf("EnsureReady() error = %v", err)
	}

	l.Last().Crash()
	waitFor(t, func() bool { return !m.Healthy() })

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.EnsureReady(context.Background()); err != nil {
				t.Errorf("EnsureReady() error = %v", err)
			}
		}()
	}
	wg.Wait()

	second, err := m.EnsureReady(context.Background())
	if err != nil {
		t.Fatalf("EnsureReady() error = %v", err)
	}
	if second == first {
		t.Error("expected a new browser after disconnect")
	}
	if n := l.Launches(); n != 2 {
		t.Errorf("Launches() = %d, want 2", n)
	}

	stats := m.Stats()
	if stats.Disconnects != 1 {
		t.Errorf("Stats().Disconnects = %d, want 1", stats.Disconnects)
	}
	if stats.Restarts != 0 {
		t.Errorf("Stats().Restarts = %d, want 0", stats.Restarts)
	}
}

func TestManager_RecyclesAfterMaxLifetime(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	l := &browsertest.Launcher{}
	m := browser.NewManager(l, browser.WithClock(clock.Now), browser.WithMaxLifetime(time.Hour))
	defer func() { _ = m.Shutdown() }()

	if _, err := m.EnsureReady(context.Background()); err != nil {
		t.Fatalf("EnsureReady() error = %v", err)
	}

	clock.Advance(59 * time.Minute)
	if _, err := m.EnsureReady(context.Background()); err != nil {
		t.Fatalf("EnsureReady() error = %v", err)
	}
	if n := l.Launches(); n != 1 {
		t.Fatalf("Launches() before ceiling = %d, want 1", n)
	}
	if up := m.Uptime(); up != 59*time.Minute {
		t.Errorf("Uptime() = %v, want 59m", up)
	}

	clock.Advance(2 * time.Minute)
	if _, err := m.EnsureReady(context.Background()); err != nil {
		t.Fatalf("EnsureReady() error = %v", err)
	}

	browsers := l.Browsers()
	if len(browsers) != 2 {
		t.Fatalf("launched %d browsers, want 2", len(browsers))
	}
	if !browsers[0].Closed() {
		t.Error("expired browser was not closed")
	}
	if browsers[1].Closed() {
		t.Error("replacement browser should be running")
	}

	stats := m.Stats()
	if stats.Restarts != 1 || stats.Disconnects != 0 {
		t.Errorf("Stats() = %+v, want 1 restart and 0 disconnects", stats)
	}
	if !stats.Alive || !stats.StartedAt.Equal(clock.Now()) {
		t.Errorf("Stats() = %+v, want alive browser started now", stats)
	}
}

func TestManager_LaunchError(t *testing.T) {
	t.Parallel()

	l := &browsertest.Launcher{Err: errors.New("exec: chrome not found")}
	m := browser.NewManager(l)

	_, err := m.EnsureReady(context.Background())
	if !errors.Is(err, browser.ErrLaunch) {
		t.Fatalf("EnsureReady() error = %v, want ErrLaunch", err)
	}

	// No automatic retry, but the next call tries again.
	_, _ = m.EnsureReady(context.Background())
	if n := l.Launches(); n != 2 {
		t.Errorf("Launches() = %d, want 2", n)
	}
	if m.Healthy() {
		t.Error("Healthy() = true after failed launches")
	}
}

func TestManager_ContextCanceledWhileWaiting(t *testing.T) {
	t.Parallel()

	l := &browsertest.Launcher{Delay: 200 * time.Millisecond}
	m := browser.NewManager(l)
	defer func() { _ = m.Shutdown() }()

	go func() { _, _ = m.EnsureReady(context.Background()) }()
	waitFor(t, func() bool { return l.Launches() == 1 })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := m.EnsureReady(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("EnsureReady() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestManager_Shutdown(t *testing.T) {
	t.Parallel()

	l := &browsertest.Launcher{}
	m := browser.NewManager(l)

	if _, err := m.EnsureReady(context.Background()); err != nil {
		t.Fatalf("EnsureReady() error = %v", err)
	}

	if err := m.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := m.Shutdown(); err != nil {
		t.Fatalf("second Shutdown() error = %v", err)
	}
	if !l.Last().Closed() {
		t.Error("browser not closed on shutdown")
	}
	if _, err := m.EnsureReady(context.Background()); !errors.Is(err, browser.ErrClosed) {
		t.Errorf("EnsureReady() after shutdown error = %v, want ErrClosed", err)
	}
	if d := m.Stats().Disconnects; d != 0 {
		t.Errorf("Stats().Disconnects = %d, want 0 for a deliberate close", d)
	}
}

func TestManager_ShutdownWithoutBrowser(t *testing.T) {
	t.Parallel()

	m := browser.NewManager(&browsertest.Launcher{})
	if err := m.Shutdown(); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	if up := m.Uptime(); up != 0 {
		t.Errorf("Uptime() = %v, want 0", up)
	}
}
