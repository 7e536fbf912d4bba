package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-docgen/internal/browser/browsertest"
	"github.com/alnah/go-docgen/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Snapshots.Dir = t.TempDir()
	cfg.Render.CheckDependencies = false
	return cfg
}

func TestServe_LifecycleClosesBrowser(t *testing.T) {
	t.Parallel()

	launcher := &browsertest.Launcher{}
	tio := newTestEnv(t, nil, launcher)

	addr := make(chan string, 1)
	tio.env.Listen = func(network, _ string) (net.Listener, error) {
		ln, err := net.Listen(network, "127.0.0.1:0")
		if err == nil {
			addr <- ln.Addr().String()
		}
		return ln, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, testConfig(t), zap.NewNop(), tio.env) }()

	var base string
	select {
	case a := <-addr:
		base = "http://" + a
	case <-time.After(5 * time.Second):
		t.Fatal("server did not listen")
	}

	var resp *http.Response
	var err error
	for i := 0; i < 50; i++ {
		resp, err = http.Get(base + "/health")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/health status = %d, want 200", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve() = %v, want nil", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return after cancel")
	}

	if got := launcher.Launches(); got != 1 {
		t.Errorf("launches = %d, want 1 (warm-up reused by /health)", got)
	}
	if !launcher.Last().Closed() {
		t.Error("browser still open after shutdown")
	}
}

func TestServe_WarmUpFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	launcher := &browsertest.Launcher{Err: errors.New("no chrome here")}
	tio := newTestEnv(t, nil, launcher)
	ready := make(chan struct{})
	tio.env.Listen = func(network, _ string) (net.Listener, error) {
		defer close(ready)
		return net.Listen(network, "127.0.0.1:0")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, testConfig(t), zap.NewNop(), tio.env) }()

	<-ready
	time.Sleep(50 * time.Millisecond)
	cancel()

	if err := <-done; err != nil {
		t.Errorf("serve() = %v, want nil", err)
	}
	if launcher.Launches() < 1 {
		t.Error("warm-up did not attempt a launch")
	}
}

func TestServe_ListenFailure(t *testing.T) {
	t.Parallel()

	launcher := &browsertest.Launcher{}
	tio := newTestEnv(t, nil, launcher)
	tio.env.Listen = func(string, string) (net.Listener, error) {
		return nil, fmt.Errorf("address already in use")
	}

	err := serve(context.Background(), testConfig(t), zap.NewNop(), tio.env)
	if !errors.Is(err, ErrListen) {
		t.Fatalf("serve() = %v, want ErrListen", err)
	}
	if exitCodeFor(err) != ExitGeneral {
		t.Errorf("exit code = %d, want %d", exitCodeFor(err), ExitGeneral)
	}
}

func TestNewApp_UnknownStyle(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Render.Style = "no-such-style"
	tio := newTestEnv(t, nil, nil)

	_, err := newApp(cfg, zap.NewNop(), tio.env)
	if exitCodeFor(err) != ExitUsage {
		t.Errorf("newApp() error = %v, want usage-class error", err)
	}
}
