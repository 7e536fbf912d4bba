package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix marks environment variables read by the service.
const EnvPrefix = "DOCGEN_"

// EnvConfigPath names the config file when --config is not given.
const EnvConfigPath = "DOCGEN_CONFIG"

// envSetters maps each recognized variable to the field it sets.
// PORT is honored without prefix for container platforms that inject it.
var envSetters = map[string]func(c *Config, v string) error{
	"PORT":                   intField(func(c *Config) *int { return &c.Server.Port }),
	"DOCGEN_HOST":            stringField(func(c *Config) *string { return &c.Server.Host }),
	"DOCGEN_PORT":            intField(func(c *Config) *int { return &c.Server.Port }),
	"DOCGEN_ENV":             stringField(func(c *Config) *string { return &c.Server.Mode }),
	"DOCGEN_LOG_LEVEL":       stringField(func(c *Config) *string { return &c.Log.Level }),
	"DOCGEN_LOG_ENCODING":    stringField(func(c *Config) *string { return &c.Log.Encoding }),
	"DOCGEN_BROWSER_BIN":     stringField(func(c *Config) *string { return &c.Browser.Bin }),
	"DOCGEN_NO_SANDBOX":      boolField(func(c *Config) *bool { return &c.Browser.NoSandbox }),
	"DOCGEN_BROWSER_MAX_AGE": durationField(func(c *Config) *time.Duration { return &c.Browser.MaxLifetime }),
	"DOCGEN_LOAD_TIMEOUT":    durationField(func(c *Config) *time.Duration { return &c.Render.LoadTimeout }),
	"DOCGEN_REQUEST_TIMEOUT": durationField(func(c *Config) *time.Duration { return &c.Render.RequestTimeout }),
	"DOCGEN_MAX_SESSIONS":    intField(func(c *Config) *int { return &c.Render.MaxSessions }),
	"DOCGEN_STYLE":           stringField(func(c *Config) *string { return &c.Render.Style }),
	"DOCGEN_STYLES_DIR":      stringField(func(c *Config) *string { return &c.Render.StylesDir }),
	"DOCGEN_ASSET_BASE_URL":  stringField(func(c *Config) *string { return &c.Render.AssetBaseURL }),
	"DOCGEN_DATA_DIR":        stringField(func(c *Config) *string { return &c.Snapshots.Dir }),
	"DOCGEN_SNAPSHOTS_KEEP":  intField(func(c *Config) *int { return &c.Snapshots.Keep }),
	EnvConfigPath:            func(*Config, string) error { return nil }, // read by the command
}

// ApplyEnv overrides cfg with recognized variables found through lookup
// (usually os.LookupEnv). Empty values are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	for name, set := range envSetters {
		v, ok := lookup(name)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		if err := set(c, strings.TrimSpace(v)); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, name, v, err))
		}
	}
	return errors.Join(errs...)
}

// UnknownEnvVars returns DOCGEN_* names from environ (KEY=VALUE pairs) that
// the service does not recognize, usually typos.
func UnknownEnvVars(environ []string) []string {
	var unknown []string
	for _, kv := range environ {
		name, _, _ := strings.Cut(kv, "=")
		if !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		if _, ok := envSetters[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

func stringField(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func intField(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func boolField(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

func durationField(field func(*Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*field(c) = d
		return nil
	}
}
