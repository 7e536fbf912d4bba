package deps

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestChecker_Validate(t *testing.T) {
	t.Parallel()

	var inflight, peak atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inflight.Add(1)
		defer inflight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}

		switch r.URL.Path {
		case "/ok.css":
			w.WriteHeader(http.StatusOK)
		case "/redirect.js":
			http.Redirect(w, r, "/ok.css", http.StatusFound)
		case "/no-head.js":
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			_, _ = w.Write([]byte("console.log(1)"))
		case "/slow.css":
			time.Sleep(300 * time.Millisecond)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewChecker(WithTimeout(100*time.Millisecond), WithConcurrency(2))

	urls := []string{
		srv.URL + "/ok.css",
		srv.URL + "/missing.css",
		srv.URL + "/redirect.js",
		srv.URL + "/no-head.js",
		srv.URL + "/slow.css",
		"ftp://example.com/x.css",
		"://bad",
	}

	failures := c.Validate(context.Background(), urls)

	wantURLs := []string{srv.URL + "/missing.css", srv.URL + "/slow.css", "ftp://example.com/x.css", "://bad"}
	if len(failures) != len(wantURLs) {
		t.Fatalf("Validate() = %+v, want %d failures", failures, len(wantURLs))
	}
	for i, f := range failures {
		if f.URL != wantURLs[i] {
			t.Errorf("failure[%d].URL = %q, want %q", i, f.URL, wantURLs[i])
		}
		if f.Reason == "" {
			t.Errorf("failure[%d] has no reason", i)
		}
	}
	if !strings.Contains(failures[0].Reason, "404") {
		t.Errorf("missing.css reason = %q, want status 404", failures[0].Reason)
	}
	if !strings.Contains(failures[1].Reason, "timed out") {
		t.Errorf("slow.css reason = %q, want timeout", failures[1].Reason)
	}
	if p := peak.Load(); p > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", p)
	}
}

func TestChecker_ValidateEmpty(t *testing.T) {
	t.Parallel()

	if got := NewChecker().Validate(context.Background(), nil); len(got) != 0 {
		t.Errorf("Validate(nil) = %v, want empty", got)
	}
}
