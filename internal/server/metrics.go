package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	docgen "github.com/alnah/go-docgen"
	"github.com/alnah/go-docgen/internal/browser"
)

const namespace = "docgen"

// Metrics records render activity in Prometheus. It implements
// docgen.Observer so the Renderer feeds it directly.
type Metrics struct {
	registry *prometheus.Registry

	renders            *prometheus.CounterVec
	renderDuration     *prometheus.HistogramVec
	sessionsActive     prometheus.Gauge
	dependencyFailures prometheus.Counter
}

var _ docgen.Observer = (*Metrics)(nil)

// NewMetrics builds the collectors on a private registry. browserStats,
// when non-nil, is sampled at scrape time for the browser counters.
func NewMetrics(browserStats func() browser.Stats) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		renders: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Completed renders by output format and outcome.",
		}, []string{"format", "outcome"}),
		renderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "End-to-end render latency.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"format"}),
		sessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Render sessions currently holding a browser tab.",
		}),
		dependencyFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dependency_failures_total",
			Help:      "Dependencies that failed the reachability check.",
		}),
	}

	if browserStats != nil {
		browserCounter := func(name, help string, value func(browser.Stats) int64) {
			factory.NewCounterFunc(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      name,
				Help:      help,
			}, func() float64 { return float64(value(browserStats())) })
		}
		browserCounter("browser_launches_total", "Browser processes launched.",
			func(s browser.Stats) int64 { return s.Launches })
		browserCounter("browser_restarts_total", "Browser recycles after reaching the maximum lifetime.",
			func(s browser.Stats) int64 { return s.Restarts })
		browserCounter("browser_disconnects_total", "Unexpected browser disconnects.",
			func(s browser.Stats) int64 { return s.Disconnects })
	}

	return m
}

// Handler serves the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) SessionStarted() { m.sessionsActive.Inc() }
func (m *Metrics) SessionEnded()   { m.sessionsActive.Dec() }

func (m *Metrics) RenderCompleted(format docgen.OutputFormat, outcome string, d time.Duration) {
	m.renders.WithLabelValues(format.String(), outcome).Inc()
	m.renderDuration.WithLabelValues(format.String()).Observe(d.Seconds())
}

func (m *Metrics) DependencyFailed(n int) {
	m.dependencyFailures.Add(float64(n))
}
