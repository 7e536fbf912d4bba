// Package config loads the service configuration: defaults, then a YAML
// file, then DOCGEN_* environment variables. Command-line flags are applied
// on top by the caller.
package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/alnah/go-docgen/internal/fileutil"
	"github.com/alnah/go-docgen/internal/logger"
	"github.com/alnah/go-docgen/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParse    = errors.New("failed to parse config")
	ErrInvalidConfig  = errors.New("invalid config")
)

// Server modes. Production hides stack traces from error responses.
const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

// Config holds all service configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Log          logger.Config      `yaml:"log"`
	Browser      BrowserConfig      `yaml:"browser"`
	Render       RenderConfig       `yaml:"render"`
	Dependencies DependenciesConfig `yaml:"dependencies"`
	Snapshots    SnapshotsConfig    `yaml:"snapshots"`
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Mode            string        `yaml:"mode"` // "development" or "production"
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MaxBodyBytes    int64         `yaml:"maxBodyBytes"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BrowserConfig defines the headless browser process.
type BrowserConfig struct {
	Bin         string        `yaml:"bin"` // empty = system or downloaded Chromium
	NoSandbox   bool          `yaml:"noSandbox"`
	Headless    bool          `yaml:"headless"`
	MaxLifetime time.Duration `yaml:"maxLifetime"`
	WarmUp      bool          `yaml:"warmUp"` // launch at startup instead of on first request
}

// RenderConfig defines per-request rendering.
type RenderConfig struct {
	LoadTimeout       time.Duration `yaml:"loadTimeout"`
	RequestTimeout    time.Duration `yaml:"requestTimeout"`
	NetworkIdle       time.Duration `yaml:"networkIdle"`
	MaxSessions       int           `yaml:"maxSessions"` // 0 = derived from GOMAXPROCS
	Style             string        `yaml:"style"`       // style name or path to a .css file
	StylesDir         string        `yaml:"stylesDir"`   // custom styles, falling back to built-ins
	HighlightStyle    string        `yaml:"highlightStyle"`
	AssetBaseURL      string        `yaml:"assetBaseURL"`
	CheckDependencies bool          `yaml:"checkDependencies"`
}

// DependenciesConfig defines dependency reachability checks.
type DependenciesConfig struct {
	Timeout     time.Duration `yaml:"timeout"`
	Concurrency int           `yaml:"concurrency"`
}

// SnapshotsConfig defines request payload retention.
type SnapshotsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Dir           string `yaml:"dir"`
	Keep          int    `yaml:"keep"` // 0 = keep everything
	PruneSchedule string `yaml:"pruneSchedule"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3000,
			Mode:            ModeDevelopment,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    90 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    10 << 20,
		},
		Log: logger.Config{
			Level:    "info",
			Encoding: "json",
		},
		Browser: BrowserConfig{
			Headless:    true,
			MaxLifetime: 12 * time.Hour,
			WarmUp:      true,
		},
		Render: RenderConfig{
			LoadTimeout:       30 * time.Second,
			RequestTimeout:    60 * time.Second,
			NetworkIdle:       500 * time.Millisecond,
			HighlightStyle:    "github",
			CheckDependencies: true,
		},
		Dependencies: DependenciesConfig{
			Timeout:     5 * time.Second,
			Concurrency: 8,
		},
		Snapshots: SnapshotsConfig{
			Enabled:       true,
			Dir:           "data",
			Keep:          100,
			PruneSchedule: "@every 1m",
		},
	}
}

// Load reads path over the defaults. Fields absent from the file keep
// their default values; unknown fields are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := yamlutil.ReadFileStrict(path, cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	return cfg, nil
}

// Production reports whether the server runs in production mode.
func (c *Config) Production() bool {
	return strings.EqualFold(c.Server.Mode, ModeProduction)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		invalid("server.port %d outside 1..65535", c.Server.Port)
	}
	switch strings.ToLower(c.Server.Mode) {
	case ModeDevelopment, ModeProduction:
	default:
		invalid("server.mode %q (want development or production)", c.Server.Mode)
	}
	if c.Server.MaxBodyBytes <= 0 {
		invalid("server.maxBodyBytes must be positive")
	}

	positive := map[string]time.Duration{
		"server.readTimeout":     c.Server.ReadTimeout,
		"server.writeTimeout":    c.Server.WriteTimeout,
		"server.idleTimeout":     c.Server.IdleTimeout,
		"server.shutdownTimeout": c.Server.ShutdownTimeout,
		"browser.maxLifetime":    c.Browser.MaxLifetime,
		"render.loadTimeout":     c.Render.LoadTimeout,
		"render.requestTimeout":  c.Render.RequestTimeout,
		"render.networkIdle":     c.Render.NetworkIdle,
		"dependencies.timeout":   c.Dependencies.Timeout,
	}
	for _, name := range slices.Sorted(maps.Keys(positive)) {
		if positive[name] <= 0 {
			invalid("%s must be positive, got %s", name, positive[name])
		}
	}
	if c.Render.LoadTimeout > c.Render.RequestTimeout {
		invalid("render.loadTimeout (%s) exceeds render.requestTimeout (%s)", c.Render.LoadTimeout, c.Render.RequestTimeout)
	}

	if c.Render.MaxSessions < 0 {
		invalid("render.maxSessions must not be negative")
	}
	if c.Render.AssetBaseURL != "" && !fileutil.IsURL(c.Render.AssetBaseURL) {
		invalid("render.assetBaseURL %q is not an http(s) URL", c.Render.AssetBaseURL)
	}
	if c.Dependencies.Concurrency < 1 {
		invalid("dependencies.concurrency must be at least 1")
	}

	if c.Snapshots.Keep < 0 {
		invalid("snapshots.keep must not be negative")
	}
	if c.Snapshots.Enabled && c.Snapshots.Dir == "" {
		invalid("snapshots.dir is required when snapshots are enabled")
	}

	return errors.Join(errs...)
}
