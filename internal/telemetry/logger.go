// Package telemetry provides logging and cache metrics for context trees.
package telemetry

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level sets the minimum level (trace, debug, info, warn, error).
	Level string `yaml:"level"`

	// Format is console or json.
	Format string `yaml:"format"`

	// Output is stdout, stderr or a file path.
	Output string `yaml:"output"`

	// TimeFormat is rfc3339, unix or unixms.
	TimeFormat string `yaml:"time_format"`
}

// DefaultLoggingConfig logs warnings to stderr in console format.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:      "warn",
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "rfc3339",
	}
}

// Validate rejects unknown levels and formats.
func (c LoggingConfig) Validate() error {
	if _, ok := parseLevel(c.Level); !ok {
		return fmt.Errorf("telemetry: unknown log level %q", c.Level)
	}
	switch c.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("telemetry: unknown log format %q", c.Format)
	}
	return nil
}

// NewLogger builds a zerolog logger from cfg.
func NewLogger(cfg LoggingConfig) (zerolog.Logger, error) {
	var writer io.Writer
	switch cfg.Output {
	case "", "stderr":
		writer = os.Stderr
	case "stdout":
		writer = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("telemetry: open log output: %w", err)
		}
		writer = f
	}
	return newLogger(cfg, writer)
}

func newLogger(cfg LoggingConfig, writer io.Writer) (zerolog.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return zerolog.Nop(), err
	}

	switch cfg.TimeFormat {
	case "unix":
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	case "unixms":
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	default:
		zerolog.TimeFieldFormat = time.RFC3339
	}

	if cfg.Format == "console" {
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.Kitchen}
	}

	level, _ := parseLevel(cfg.Level)
	return zerolog.New(writer).With().Timestamp().Logger().Level(level), nil
}

func parseLevel(level string) (zerolog.Level, bool) {
	switch level {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "", "info":
		return zerolog.InfoLevel, true
	case "warn":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off":
		return zerolog.Disabled, true
	}
	return zerolog.NoLevel, false
}
