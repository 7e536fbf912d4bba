package main

import (
	"errors"

	docgen "github.com/alnah/go-docgen"
	"github.com/alnah/go-docgen/internal/assets"
	"github.com/alnah/go-docgen/internal/browser"
	"github.com/alnah/go-docgen/internal/config"
)

// Exit codes for the docgen command.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Clean shutdown
	ExitGeneral = 1 // General/unexpected error, including panics
	ExitUsage   = 2 // Invalid flags, config, or styles
	ExitBrowser = 4 // Browser/Chrome errors
)

// exitCodeFor returns the exit code for an error returned by run's steps.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, browser.ErrLaunch) || errors.Is(err, docgen.ErrBrowserLaunch) {
		return ExitBrowser
	}

	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrInvalidConfig) ||
		errors.Is(err, assets.ErrStyleNotFound) ||
		errors.Is(err, assets.ErrHighlightStyleNotFound) ||
		errors.Is(err, assets.ErrInvalidAssetName) ||
		errors.Is(err, assets.ErrInvalidBasePath) ||
		errors.Is(err, assets.ErrAssetRead) {
		return ExitUsage
	}

	return ExitGeneral
}
