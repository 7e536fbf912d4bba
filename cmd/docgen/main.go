package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"

	"github.com/alnah/go-docgen/internal/config"
	"github.com/alnah/go-docgen/internal/hints"
	"github.com/alnah/go-docgen/internal/logger"
	"github.com/alnah/go-docgen/internal/yamlutil"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	os.Exit(run(os.Args, DefaultEnv()))
}

// run executes the command line and returns the process exit code.
func run(args []string, env *Environment) int {
	if len(args) > 1 && args[1] == "doctor" {
		return runDoctorCmd(args[2:], env)
	}

	f, err := parseFlags(args[1:], env.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return ExitSuccess
	}
	if err != nil {
		fmt.Fprintln(env.Stderr, err)
		return ExitUsage
	}
	if f.version {
		fmt.Fprintf(env.Stdout, "docgen %s\n", Version)
		return ExitSuccess
	}

	cfg, err := loadConfig(f, env)
	if err != nil {
		fmt.Fprintln(env.Stderr, err)
		return exitCodeFor(err)
	}

	if f.printConfig {
		out, err := yamlutil.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(env.Stderr, err)
			return ExitGeneral
		}
		_, _ = env.Stdout.Write(out)
		return ExitSuccess
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(env.Stderr, "building logger: %v\n", err)
		return ExitUsage
	}
	defer func() { _ = log.Sync() }()

	for _, name := range config.UnknownEnvVars(env.Environ()) {
		log.Warn("unknown environment variable (typo?)", zap.String("name", name))
	}

	// Only fails on an invalid GOMAXPROCS value, in which case the runtime default stays.
	undo, _ := maxprocs.Set(maxprocs.Logger(log.Sugar().Debugf))
	defer undo()

	ctx, stop := notifyContext(context.Background())
	defer stop()

	if err := serve(ctx, cfg, log, env); err != nil {
		log.Error("docgen stopped", zap.Error(err))
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// loadConfig layers defaults, the config file, DOCGEN_* variables and
// flags, in increasing precedence, then validates the result.
func loadConfig(f *cliFlags, env *Environment) (*config.Config, error) {
	path := f.config
	if path == "" {
		path, _ = env.LookupEnv(config.EnvConfigPath)
	}

	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			if errors.Is(err, config.ErrConfigNotFound) {
				return nil, fmt.Errorf("%w%s", err, hints.ForConfigNotFound(path))
			}
			return nil, err
		}
		cfg = loaded
	}

	if err := cfg.ApplyEnv(env.LookupEnv); err != nil {
		return nil, err
	}
	f.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
