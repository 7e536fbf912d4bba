// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strconv"
	"strings"

	"github.com/alnah/go-docgen/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// ForBrowserLaunch returns hints for browser launch errors, given the
// sandbox setting and custom binary the launcher was configured with.
func ForBrowserLaunch(noSandbox bool, bin string) string {
	var hints []string

	inCI := os.Getenv("CI") != "" ||
		os.Getenv("GITHUB_ACTIONS") != "" ||
		os.Getenv("GITLAB_CI") != "" ||
		os.Getenv("JENKINS_URL") != ""

	if (inCI || IsInContainer()) && !noSandbox {
		hints = append(hints, "set DOCGEN_NO_SANDBOX=1 or --no-sandbox for Docker/CI")
	}

	if bin == "" {
		hints = append(hints, "set DOCGEN_BROWSER_BIN to use a pre-installed Chrome")
	} else if !fileutil.FileExists(bin) {
		hints = append(hints, "browser binary "+bin+" does not exist")
	}

	return formatHints(hints)
}

// ForLoadTimeout returns a hint about raising the content load ceiling.
func ForLoadTimeout() string {
	return format("slow dependencies keep the network busy; raise render.loadTimeout or check dependency URLs")
}

// ForConfigNotFound returns a hint for a missing config file.
func ForConfigNotFound(path string) string {
	return format("use --config /path/to/docgen.yaml or create " + path)
}

// ForListen returns a hint for a server that cannot bind its port.
func ForListen(port int) string {
	return format("port " + strconv.Itoa(port) + " may be in use; set PORT or --port")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
