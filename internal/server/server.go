// Package server exposes the Renderer over HTTP with gin.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	docgen "github.com/alnah/go-docgen"
	"github.com/alnah/go-docgen/internal/browser"
	"github.com/alnah/go-docgen/internal/snapshot"
)

// DefaultMaxBodyBytes caps request bodies at 10 MiB.
const DefaultMaxBodyBytes = 10 << 20

// Renderer produces artifacts; satisfied by *docgen.Renderer.
type Renderer interface {
	Render(ctx context.Context, req docgen.RenderRequest) (*docgen.Artifact, error)
}

// BrowserHealth reports on the shared browser; satisfied by *browser.Manager.
type BrowserHealth interface {
	EnsureReady(ctx context.Context) (browser.Browser, error)
	Uptime() time.Duration
}

// SnapshotStore persists request payloads; satisfied by *snapshot.Store.
type SnapshotStore interface {
	Save(payload []byte) (string, error)
	List() ([]snapshot.Meta, error)
	Get(id string) ([]byte, error)
}

// Config holds HTTP settings.
type Config struct {
	Addr         string
	Production   bool // hide error detail chains from responses
	MaxBodyBytes int64
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Server is the HTTP front of the renderer.
type Server struct {
	cfg       Config
	renderer  Renderer
	browser   BrowserHealth
	snapshots SnapshotStore
	metrics   *Metrics
	logger    *zap.Logger
	started   time.Time

	engine *gin.Engine
	http   *http.Server
	saves  sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Nil keeps the no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSnapshots enables payload persistence and the /data routes.
func WithSnapshots(store SnapshotStore) Option {
	return func(s *Server) { s.snapshots = store }
}

// WithMetrics mounts GET /metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New builds the server and its routes.
func New(cfg Config, r Renderer, b BrowserHealth, opts ...Option) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	s := &Server{
		cfg:      cfg,
		renderer: r,
		browser:  b,
		logger:   zap.NewNop(),
		started:  time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.engine = gin.New()
	s.engine.Use(RequestID(), Logger(s.logger), Recovery(s.logger))
	s.routes()

	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
	return s
}

func (s *Server) routes() {
	s.engine.POST("/generate", s.handleGenerate)
	s.engine.POST("/", s.handleGenerate)
	s.engine.GET("/health", s.handleHealth)

	if s.snapshots != nil {
		s.engine.GET("/data", s.handleListSnapshots)
		s.engine.GET("/data/:id", s.handleGetSnapshot)
	}
	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve accepts connections on ln until Shutdown. It returns nil after a
// graceful shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("listening", zap.String("addr", ln.Addr().String()))
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones and for
// pending snapshot writes, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.saves.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("snapshot writes still pending at shutdown")
	}
	return err
}
