package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-rod/rod/lib/launcher"

	"github.com/alnah/go-docgen/internal/config"
	"github.com/alnah/go-docgen/internal/fileutil"
)

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string      `json:"status"` // "ready", "warnings", "errors"
	Browser  browserInfo `json:"browser"`
	Env      envInfo     `json:"environment"`
	DataDir  dataDirInfo `json:"dataDir"`
	Warnings []string    `json:"warnings,omitempty"`
	Errors   []string    `json:"errors,omitempty"`
}

type browserInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"containerHint,omitempty"`
	CI            bool   `json:"ci"`
	ConfigFile    string `json:"configFile,omitempty"`
}

type dataDirInfo struct {
	Enabled  bool   `json:"enabled"`
	Path     string `json:"path,omitempty"`
	Writable bool   `json:"writable"`
}

// runDoctorCmd checks that the host can run the service.
// Exit codes: 0 = OK (including warnings), 1 = errors found, 2 = bad flags.
func runDoctorCmd(args []string, env *Environment) int {
	f, err := parseFlags(args, env.Stderr)
	if err != nil {
		fmt.Fprintln(env.Stderr, err)
		return ExitUsage
	}
	result := &doctorResult{Status: "ready"}
	cfg, err := loadConfig(f, env)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		cfg = config.Default()
	}
	result.Env = envInfo{OS: runtime.GOOS, Arch: runtime.GOARCH, ConfigFile: f.config}

	checkBrowser(result, cfg.Browser)
	checkEnvironment(result, cfg.Browser, env)
	checkDataDir(result, cfg.Snapshots)

	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}

	if f.json {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == "errors" {
		return ExitGeneral
	}
	return ExitSuccess
}

// lookPath is replaced in tests.
var lookPath = launcher.LookPath

func checkBrowser(result *doctorResult, cfg config.BrowserConfig) {
	path := cfg.Bin
	if path == "" {
		var found bool
		path, found = lookPath()
		if !found {
			// Not fatal: rod downloads a Chromium on first launch.
			result.Warnings = append(result.Warnings,
				"Chrome/Chromium not found; a browser will be downloaded on first launch. Set DOCGEN_BROWSER_BIN to pin one")
			return
		}
	}

	if !fileutil.FileExists(path) {
		result.Errors = append(result.Errors, fmt.Sprintf("browser binary not found at %s", path))
		return
	}

	result.Browser.Found = true
	result.Browser.Path = path
	result.Browser.Sandbox = !cfg.NoSandbox

	out, err := exec.Command(path, "--version").Output() // #nosec G204 -- operator-configured binary
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("could not get browser version: %v", err))
		return
	}
	result.Browser.Version = strings.TrimSpace(string(out))
}

func checkEnvironment(result *doctorResult, cfg config.BrowserConfig, env *Environment) {
	result.Env.Container, result.Env.ContainerHint = isContainer(env)

	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"} {
		if val, _ := env.LookupEnv(v); val != "" {
			result.Env.CI = true
			break
		}
	}

	if (result.Env.Container || result.Env.CI) && !cfg.NoSandbox {
		result.Warnings = append(result.Warnings,
			"container/CI detected but the browser sandbox is on; set DOCGEN_NO_SANDBOX=1 or --no-sandbox")
	}
}

// isContainer reports whether the process runs in a container and which
// signal said so.
func isContainer(env *Environment) (bool, string) {
	if fileutil.FileExists("/.dockerenv") {
		return true, "/.dockerenv"
	}
	if v, _ := env.LookupEnv("container"); v != "" {
		return true, "container=" + v
	}
	if v, _ := env.LookupEnv("KUBERNETES_SERVICE_HOST"); v != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

func checkDataDir(result *doctorResult, cfg config.SnapshotsConfig) {
	result.DataDir.Enabled = cfg.Enabled
	if !cfg.Enabled {
		return
	}
	result.DataDir.Path = cfg.Dir

	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("snapshot directory %s: %v", cfg.Dir, err))
		return
	}
	probe := filepath.Join(cfg.Dir, ".docgen-doctor")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("snapshot directory %s is not writable", cfg.Dir))
		return
	}
	_ = os.Remove(probe)
	result.DataDir.Writable = true
}

func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "docgen doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Browser")
	if r.Browser.Found {
		fmt.Fprintf(w, "  [OK] Found at %s\n", r.Browser.Path)
		if r.Browser.Version != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", r.Browser.Version)
		}
		if r.Browser.Sandbox {
			fmt.Fprintln(w, "  [OK] Sandbox: enabled")
		} else {
			fmt.Fprintln(w, "  [OK] Sandbox: disabled")
		}
	} else {
		fmt.Fprintln(w, "  [--] Not found locally")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	if r.DataDir.Enabled {
		fmt.Fprintln(w, "Snapshots")
		if r.DataDir.Writable {
			fmt.Fprintf(w, "  [OK] %s: writable\n", r.DataDir.Path)
		} else {
			fmt.Fprintf(w, "  [ERROR] %s: not writable\n", r.DataDir.Path)
		}
		fmt.Fprintln(w)
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}
	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: READY")
	case "warnings":
		fmt.Fprintln(w, "Status: READY (with warnings)")
	default:
		fmt.Fprintln(w, "Status: NOT READY")
	}
}
