// Package config loads client settings from DILEMMA_* environment variables,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/ormasoftchile/dilemma/pkg/logging"
)

// Prefix is the environment variable prefix.
const Prefix = "dilemma"

// Config holds client settings.
type Config struct {
	APIURL       string        `envconfig:"API_URL" default:"http://localhost:8000/api" desc:"analysis service base URL"`
	HTTPTimeout  time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s" desc:"per-request timeout"`
	AdvanceDelay time.Duration `envconfig:"ADVANCE_DELAY" default:"3s" desc:"time analysis stays on screen before the next step"`
	LogLevel     string        `envconfig:"LOG_LEVEL" default:"info" desc:"debug, info, warn or error"`
	LogFormat    string        `envconfig:"LOG_FORMAT" default:"console" desc:"console or json"`
	LogFile      string        `envconfig:"LOG_FILE" desc:"log destination; stderr when empty"`
}

// LoadDotEnv loads variables from the given files (.env by default) without
// overriding ones already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the API URL and durations.
func (c *Config) Validate() error {
	u, err := url.ParseRequestURI(c.APIURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid DILEMMA_API_URL %q: must be an absolute http(s) URL", c.APIURL)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("DILEMMA_HTTP_TIMEOUT must not be negative, got %s", c.HTTPTimeout)
	}
	if c.AdvanceDelay < 0 {
		return fmt.Errorf("DILEMMA_ADVANCE_DELAY must not be negative, got %s", c.AdvanceDelay)
	}
	return nil
}

// Logging returns the logger settings.
func (c *Config) Logging() logging.Config {
	return logging.Config{Level: c.LogLevel, Format: c.LogFormat, File: c.LogFile}
}

// Usage writes the recognised variables as a table.
func Usage(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 1, 0, 4, ' ', 0)
	const format = `{{range .}}{{usage_key .}}	{{usage_default .}}	{{usage_description .}}
{{end}}`
	if _, err := io.WriteString(tw, "VARIABLE\tDEFAULT\tDESCRIPTION\n"); err != nil {
		return err
	}
	if err := envconfig.Usagef(Prefix, &Config{}, tw, format); err != nil {
		return err
	}
	return tw.Flush()
}

// String renders the effective config for display.
func (c *Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "api_url:       %s\n", c.APIURL)
	fmt.Fprintf(&b, "http_timeout:  %s\n", c.HTTPTimeout)
	fmt.Fprintf(&b, "advance_delay: %s\n", c.AdvanceDelay)
	fmt.Fprintf(&b, "log_level:     %s\n", c.LogLevel)
	fmt.Fprintf(&b, "log_format:    %s\n", c.LogFormat)
	logFile := c.LogFile
	if logFile == "" {
		logFile = "(stderr)"
	}
	fmt.Fprintf(&b, "log_file:      %s\n", logFile)
	return b.String()
}
