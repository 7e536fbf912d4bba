package main

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	docgen "github.com/alnah/go-docgen"
	"github.com/alnah/go-docgen/internal/assets"
	"github.com/alnah/go-docgen/internal/browser"
	"github.com/alnah/go-docgen/internal/config"
	"github.com/alnah/go-docgen/internal/deps"
	"github.com/alnah/go-docgen/internal/hints"
	"github.com/alnah/go-docgen/internal/server"
	"github.com/alnah/go-docgen/internal/snapshot"
)

// warmUpTimeout bounds the eager browser launch at startup.
const warmUpTimeout = 30 * time.Second

var (
	ErrListen = errors.New("cannot listen")
	ErrPanic  = errors.New("panic")
)

// app is the wired service.
type app struct {
	manager  *browser.Manager
	renderer *docgen.Renderer
	store    *snapshot.Store
	pruner   *snapshot.Pruner
	server   *server.Server
	log      *zap.Logger
}

func newApp(cfg *config.Config, log *zap.Logger, env *Environment) (*app, error) {
	resolver, err := assets.NewResolver(cfg.Render.StylesDir)
	if err != nil {
		return nil, err
	}
	stylesheet, err := assets.Stylesheet(resolver, cfg.Render.Style, cfg.Render.HighlightStyle)
	if err != nil {
		return nil, err
	}

	a := &app{log: log}
	a.manager = browser.NewManager(
		env.NewLauncher(cfg.Browser, log.Named("browser")),
		browser.WithLogger(log.Named("browser")),
		browser.WithMaxLifetime(cfg.Browser.MaxLifetime),
	)
	metrics := server.NewMetrics(a.manager.Stats)

	opts := []docgen.Option{
		docgen.WithLogger(log.Named("render")),
		docgen.WithLoadTimeout(cfg.Render.LoadTimeout),
		docgen.WithRequestTimeout(cfg.Render.RequestTimeout),
		docgen.WithNetworkIdle(cfg.Render.NetworkIdle),
		docgen.WithStylesheet(stylesheet),
		docgen.WithMaxSessions(cfg.Render.MaxSessions),
		docgen.WithAssetBaseURL(cfg.Render.AssetBaseURL),
		docgen.WithObserver(metrics),
	}
	if cfg.Render.CheckDependencies {
		opts = append(opts, docgen.WithDependencyChecker(deps.NewChecker(
			deps.WithTimeout(cfg.Dependencies.Timeout),
			deps.WithConcurrency(cfg.Dependencies.Concurrency),
			deps.WithLogger(log.Named("deps")),
		)))
	}
	a.renderer = docgen.NewRenderer(a.manager, opts...)

	serverOpts := []server.Option{
		server.WithLogger(log.Named("http")),
		server.WithMetrics(metrics),
	}
	if cfg.Snapshots.Enabled {
		a.store, err = snapshot.NewStore(cfg.Snapshots.Dir, cfg.Snapshots.Keep)
		if err != nil {
			_ = a.manager.Shutdown()
			return nil, err
		}
		a.pruner, err = snapshot.NewPruner(a.store, cfg.Snapshots.PruneSchedule, log.Named("snapshots"))
		if err != nil {
			_ = a.manager.Shutdown()
			return nil, err
		}
		serverOpts = append(serverOpts, server.WithSnapshots(a.store))
	}

	a.server = server.New(server.Config{
		Addr:         cfg.Server.Addr(),
		Production:   cfg.Production(),
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, a.renderer, a.manager, serverOpts...)

	log.Info("renderer ready",
		zap.Int("max_sessions", a.renderer.Stats().MaxSessions),
		zap.Bool("snapshots", cfg.Snapshots.Enabled),
		zap.Bool("check_dependencies", cfg.Render.CheckDependencies),
	)
	return a, nil
}

// serve runs the service until ctx is canceled, then shuts it down. A
// panic is recovered so the browser is still closed before exit.
func serve(ctx context.Context, cfg *config.Config, log *zap.Logger, env *Environment) (err error) {
	a, err := newApp(cfg, log, env)
	if err != nil {
		return err
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("panic", zap.Any("panic", rec), zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("%w: %v", ErrPanic, rec)
		}
		a.shutdown(cfg.Server.ShutdownTimeout)
	}()

	ln, err := env.Listen("tcp", cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("%w on %s: %v%s", ErrListen, cfg.Server.Addr(), err, hints.ForListen(cfg.Server.Port))
	}

	if cfg.Browser.WarmUp {
		a.warmUp(ctx)
	}
	if a.pruner != nil {
		a.pruner.Start()
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- a.server.Serve(ln) }()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		return nil
	case err := <-serveErr:
		return err
	}
}

// warmUp launches the browser ahead of the first request. Failure is not
// fatal: the first render retries the launch.
func (a *app) warmUp(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, warmUpTimeout)
	defer cancel()
	if _, err := a.manager.EnsureReady(ctx); err != nil {
		a.log.Warn("browser warm-up failed; will retry on first request", zap.Error(err))
		return
	}
	a.log.Info("browser warm-up complete")
}

// shutdown drains HTTP, waits for renders, stops pruning and closes the
// browser, in that order.
func (a *app) shutdown(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.log.Warn("http shutdown", zap.Error(err))
	}

	closed := make(chan struct{})
	go func() {
		_ = a.renderer.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-ctx.Done():
		a.log.Warn("renders still in flight at shutdown")
	}

	if a.pruner != nil {
		a.pruner.Stop(ctx)
	}
	if err := a.manager.Shutdown(); err != nil {
		a.log.Warn("browser shutdown", zap.Error(err))
	}
	a.log.Info("shutdown complete")
}
