package main

import (
	"io"
	"net"
	"os"

	"go.uber.org/zap"

	"github.com/alnah/go-docgen/internal/browser"
	"github.com/alnah/go-docgen/internal/config"
)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Stdout    io.Writer
	Stderr    io.Writer
	LookupEnv func(string) (string, bool)
	Environ   func() []string
	Listen    func(network, addr string) (net.Listener, error)
	// NewLauncher builds the browser launcher from the browser config.
	NewLauncher func(cfg config.BrowserConfig, logger *zap.Logger) browser.Launcher
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		LookupEnv:   os.LookupEnv,
		Environ:     os.Environ,
		Listen:      net.Listen,
		NewLauncher: rodLauncher,
	}
}

func rodLauncher(cfg config.BrowserConfig, logger *zap.Logger) browser.Launcher {
	return browser.NewRodLauncher(
		browser.WithBin(cfg.Bin),
		browser.WithNoSandbox(cfg.NoSandbox),
		browser.WithHeadless(cfg.Headless),
		browser.WithLaunchLogger(logger),
	)
}
