package main

import (
	"io"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-docgen/internal/config"
)

// cliFlags holds command-line flags. Only flags the user set override the
// configuration.
type cliFlags struct {
	fs *flag.FlagSet

	config      string
	host        string
	port        int
	logLevel    string
	maxSessions int
	noSandbox   bool
	browserBin  string
	production  bool
	version     bool
	printConfig bool
	json        bool // doctor only
}

func parseFlags(args []string, stderr io.Writer) (*cliFlags, error) {
	f := &cliFlags{fs: flag.NewFlagSet("docgen", flag.ContinueOnError)}
	fs := f.fs
	fs.SetOutput(stderr)

	fs.StringVarP(&f.config, "config", "c", "", "config file path (default: $DOCGEN_CONFIG)")
	fs.StringVar(&f.host, "host", "", "listen address")
	fs.IntVarP(&f.port, "port", "p", 0, "listen port (default 3000)")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.IntVar(&f.maxSessions, "max-sessions", 0, "concurrent render sessions (0 = from GOMAXPROCS)")
	fs.BoolVar(&f.noSandbox, "no-sandbox", false, "disable the browser sandbox (Docker/CI)")
	fs.StringVar(&f.browserBin, "browser-bin", "", "path to a Chrome/Chromium binary")
	fs.BoolVar(&f.production, "production", false, "production mode: hide error details from responses")
	fs.BoolVarP(&f.version, "version", "V", false, "print version and exit")
	fs.BoolVar(&f.printConfig, "print-config", false, "print the effective configuration as YAML and exit")
	fs.BoolVar(&f.json, "json", false, "doctor: print the report as JSON")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

// apply writes explicitly set flags over cfg.
func (f *cliFlags) apply(cfg *config.Config) {
	if f.fs == nil {
		return
	}
	if f.fs.Changed("host") {
		cfg.Server.Host = f.host
	}
	if f.fs.Changed("port") {
		cfg.Server.Port = f.port
	}
	if f.fs.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if f.fs.Changed("max-sessions") {
		cfg.Render.MaxSessions = f.maxSessions
	}
	if f.fs.Changed("no-sandbox") {
		cfg.Browser.NoSandbox = f.noSandbox
	}
	if f.fs.Changed("browser-bin") {
		cfg.Browser.Bin = f.browserBin
	}
	if f.fs.Changed("production") && f.production {
		cfg.Server.Mode = config.ModeProduction
	}
}
