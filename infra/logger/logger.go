// Package logger provides the Logger backends used by the command line tools
// and the analysis service. The backend is chosen once with Configure and
// every component then obtains its logger with New.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	corelogger "github.com/kilianp07/rtsa/core/logger"
)

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

const (
	BackendZerolog = "zerolog"
	BackendSlog    = "slog"
	BackendLogrus  = "logrus"

	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config selects the logging backend.
type Config struct {
	// Backend is one of "zerolog", "slog" or "logrus".
	Backend string `json:"backend" yaml:"backend"`
	// Level is one of "debug", "info", "warn" or "error".
	Level string `json:"level" yaml:"level"`
	// Format is "json" or "console". APP_ENV=dev defaults to console.
	Format string `json:"format" yaml:"format"`
}

// SetDefaults applies fallback values for optional fields.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = BackendZerolog
	}
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = FormatJSON
		if strings.EqualFold(os.Getenv("APP_ENV"), "dev") {
			c.Format = FormatConsole
		}
	}
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendZerolog, BackendSlog, BackendLogrus:
	default:
		return fmt.Errorf("logging: unknown backend %q", c.Backend)
	}
	switch strings.ToLower(c.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging: unknown level %q", c.Level)
	}
	if c.Format != FormatJSON && c.Format != FormatConsole {
		return fmt.Errorf("logging: unknown format %q", c.Format)
	}
	return nil
}

var (
	mu     sync.RWMutex
	active = defaultConfig()
	output io.Writer = os.Stderr
)

func defaultConfig() Config {
	var c Config
	c.SetDefaults()
	return c
}

// Configure sets the backend used by subsequent calls to New.
func Configure(cfg Config) error {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	mu.Lock()
	active = cfg
	mu.Unlock()
	return nil
}

// SetOutput redirects every logger created afterwards. Reports go to stdout,
// so logs default to stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	output = w
	mu.Unlock()
}

// New returns a Logger for the given component using the configured backend.
func New(component string) Logger {
	mu.RLock()
	cfg, w := active, output
	mu.RUnlock()
	console := cfg.Format == FormatConsole
	switch cfg.Backend {
	case BackendSlog:
		return NewSlogLogger(w, component, cfg.Level, console)
	case BackendLogrus:
		return NewLogrusLogger(w, component, cfg.Level, console)
	default:
		return NewZerologLogger(w, component, cfg.Level, console)
	}
}

// NopLogger implements Logger with no-op methods.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any)         {}
func (NopLogger) Debugw(string, map[string]any) {}
func (NopLogger) Infof(string, ...any)          {}
func (NopLogger) Infow(string, map[string]any)  {}
func (NopLogger) Warnf(string, ...any)          {}
func (NopLogger) Errorf(string, ...any)         {}
