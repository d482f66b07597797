package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Environment variables overriding file settings.
const (
	EnvLogLevel   = "COROVIEW_LOG_LEVEL"
	EnvLogFile    = "COROVIEW_LOG_FILE"
	EnvHooksPath  = "COROVIEW_HOOKS"
	EnvMonochrome = "COROVIEW_MONOCHROME"
)

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	// Level is the logging verbosity level ("debug", "info", "warn",
	// "error").
	Level string `toml:"level"`

	// File is the log file path. Empty discards log output, since the
	// terminal belongs to the tree panel.
	File string `toml:"file"`
}

// DisplayConfig controls the tree panel.
type DisplayConfig struct {
	// ClearDelay is the resume quiet window in milliseconds. The panel
	// keeps showing the last stop until the window elapses; a new stop
	// inside it carries expansion and selection over.
	ClearDelay int `toml:"clear_delay"`

	// Monochrome disables colors, keeping only bold, dim and reverse.
	Monochrome bool `toml:"monochrome"`
}

// ProtocolConfig controls the debug-server connection.
type ProtocolConfig struct {
	// DialTimeout bounds the initial connection, in milliseconds.
	DialTimeout int `toml:"dial_timeout"`

	// RequestTimeout bounds execution commands (continue, next, step,
	// halt), in milliseconds. Stop-scoped queries are bounded by the stop's
	// own lifetime instead.
	RequestTimeout int `toml:"request_timeout"`
}

// ExecutorConfig sizes the two serialized task queues.
type ExecutorConfig struct {
	// ChannelQueue is the protocol task queue capacity.
	ChannelQueue int `toml:"channel_queue"`

	// DisplayQueue is the display task queue capacity.
	DisplayQueue int `toml:"display_queue"`
}

// HooksConfig locates the optional Lua formatting script.
type HooksConfig struct {
	// Path is the script path. Empty disables hooks entirely.
	Path string `toml:"path"`
}

// Config is the full coroview configuration.
type Config struct {
	Logging   LoggingConfig  `toml:"logging"`
	Display   DisplayConfig  `toml:"display"`
	Protocol  ProtocolConfig `toml:"protocol"`
	Executors ExecutorConfig `toml:"executors"`
	Hooks     HooksConfig    `toml:"hooks"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Logging: LoggingConfig{
			Level: "info",
		},
		Display: DisplayConfig{
			ClearDelay: 200,
		},
		Protocol: ProtocolConfig{
			DialTimeout:    5000,
			RequestTimeout: 2000,
		},
		Executors: ExecutorConfig{
			ChannelQueue: 256,
			DisplayQueue: 1024,
		},
	}
}

// Load builds the effective configuration: defaults, then the TOML file at
// path (skipped when path is empty), then environment overrides. The result
// is validated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}

		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvironment()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnvironment overlays COROVIEW_* variables.
func (c *Config) applyEnvironment() {
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		c.Logging.Level = v
	}
	if v, ok := os.LookupEnv(EnvLogFile); ok {
		c.Logging.File = v
	}
	if v, ok := os.LookupEnv(EnvHooksPath); ok {
		c.Hooks.Path = v
	}
	if v, ok := os.LookupEnv(EnvMonochrome); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Display.Monochrome = b
		}
	}
}

// logLevels are the accepted logging.level values.
var logLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks every setting and reports all failures, not just the
// first.
func (c *Config) Validate() error {
	var errs []error

	if !logLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, &ValidationError{
			Setting: "logging.level",
			Message: "must be debug, info, warn or error",
			Value:   c.Logging.Level,
		})
	}
	if c.Display.ClearDelay < 0 {
		errs = append(errs, &ValidationError{
			Setting: "display.clear_delay",
			Message: "must not be negative",
			Value:   c.Display.ClearDelay,
		})
	}
	if c.Protocol.DialTimeout <= 0 {
		errs = append(errs, &ValidationError{
			Setting: "protocol.dial_timeout",
			Message: "must be positive",
			Value:   c.Protocol.DialTimeout,
		})
	}
	if c.Protocol.RequestTimeout <= 0 {
		errs = append(errs, &ValidationError{
			Setting: "protocol.request_timeout",
			Message: "must be positive",
			Value:   c.Protocol.RequestTimeout,
		})
	}
	if c.Executors.ChannelQueue <= 0 {
		errs = append(errs, &ValidationError{
			Setting: "executors.channel_queue",
			Message: "must be positive",
			Value:   c.Executors.ChannelQueue,
		})
	}
	if c.Executors.DisplayQueue <= 0 {
		errs = append(errs, &ValidationError{
			Setting: "executors.display_queue",
			Message: "must be positive",
			Value:   c.Executors.DisplayQueue,
		})
	}

	return errors.Join(errs...)
}
