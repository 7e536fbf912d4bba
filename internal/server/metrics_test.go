package server

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	docgen "github.com/alnah/go-docgen"
	"github.com/alnah/go-docgen/internal/browser"
)

func zapNop() *zap.Logger { return zap.NewNop() }

func TestMetrics_Observer(t *testing.T) {
	t.Parallel()

	m := NewMetrics(nil)

	m.SessionStarted()
	m.SessionStarted()
	m.SessionEnded()
	m.RenderCompleted(docgen.FormatPDF, docgen.OutcomeSuccess, 2*time.Second)
	m.RenderCompleted(docgen.FormatPDF, "render_timeout", 30*time.Second)
	m.DependencyFailed(3)

	assert.InDelta(t, 1, testutil.ToFloat64(m.sessionsActive), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.renders.WithLabelValues("pdf", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.renders.WithLabelValues("pdf", "render_timeout")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.dependencyFailures), 0)

	n, err := testutil.GatherAndCount(m.Registry(), "docgen_render_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMetrics_BrowserCounters(t *testing.T) {
	t.Parallel()

	stats := browser.Stats{Launches: 4, Restarts: 1, Disconnects: 2}
	m := NewMetrics(func() browser.Stats { return stats })

	expected := `
# HELP docgen_browser_launches_total Browser processes launched.
# TYPE docgen_browser_launches_total counter
docgen_browser_launches_total 4
`
	err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "docgen_browser_launches_total")
	require.NoError(t, err)

	n, err := testutil.GatherAndCount(m.Registry(), "docgen_browser_restarts_total", "docgen_browser_disconnects_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
