//go:build integration

package browser

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
)

const testTimeout = 30 * time.Second

// skipIfNoChrome skips when neither a configured nor a system browser exists.
func skipIfNoChrome(t *testing.T) string {
	t.Helper()
	if bin := os.Getenv("DOCGEN_BROWSER_BIN"); bin != "" {
		return bin
	}
	bin, ok := launcher.LookPath()
	if !ok {
		t.Skip("no Chrome/Chromium found; set DOCGEN_BROWSER_BIN")
	}
	return bin
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	bin := skipIfNoChrome(t)
	m := NewManager(NewRodLauncher(WithBin(bin), WithNoSandbox(os.Getenv("CI") != "")))
	t.Cleanup(func() { _ = m.Shutdown() })
	return m
}

func TestRod_RenderRoundTrip(t *testing.T) {
	m := newTestManager(t)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	b, err := m.EnsureReady(ctx)
	if err != nil {
		t.Fatalf("EnsureReady() error = %v", err)
	}
	tab, err := b.NewTab(ctx)
	if err != nil {
		t.Fatalf("NewTab() error = %v", err)
	}
	defer func() { _ = tab.Close() }()

	if err := tab.SetViewport(ctx, A4Viewport); err != nil {
		t.Fatalf("SetViewport() error = %v", err)
	}
	if err := tab.Load(ctx, "<!DOCTYPE html><html><body><p>Hello Ada</p></body></html>", 200*time.Millisecond); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := tab.AddStyle(ctx, "p { color: red; }"); err != nil {
		t.Fatalf("AddStyle() error = %v", err)
	}
	if err := tab.EmulateMedia(ctx, "screen"); err != nil {
		t.Fatalf("EmulateMedia() error = %v", err)
	}

	out, err := tab.Eval(ctx, `() => document.querySelector("p").textContent`)
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if string(out) != `"Hello Ada"` {
		t.Errorf("Eval() = %s, want \"Hello Ada\"", out)
	}

	html, err := tab.HTML(ctx)
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}
	if !strings.HasPrefix(html, "<!DOCTYPE html>") || !strings.Contains(html, "<p>Hello Ada</p>") {
		t.Errorf("HTML() = %s", html)
	}

	pdf, err := tab.PDF(ctx, PrintParams{PaperWidth: 8.27, PaperHeight: 11.69, PrintBackground: true})
	if err != nil {
		t.Fatalf("PDF() error = %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		t.Errorf("PDF() prefix = %q", pdf[:min(10, len(pdf))])
	}
}

func TestRod_CloseSignalsDisconnect(t *testing.T) {
	bin := skipIfNoChrome(t)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	b, err := NewRodLauncher(WithBin(bin), WithNoSandbox(os.Getenv("CI") != "")).Launch(ctx)
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	_ = b.Close()

	select {
	case <-b.Disconnected():
	case <-ctx.Done():
		t.Fatal("Disconnected() not closed after Close()")
	}
}
