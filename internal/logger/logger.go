// Package logger provides the process-wide logger used by all OmniFS
// components. It wraps zerolog behind a small printf-style API so call
// sites stay terse.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Config controls log output behavior.
type Config struct {
	// Level is the minimum level to emit: DEBUG, INFO, WARN or ERROR.
	Level string

	// Format is "text" (console writer) or "json".
	Format string

	// Output is "stdout", "stderr" or a file path.
	Output string
}

var log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006-01-02 15:04:05"}).
	With().Timestamp().Logger().Level(zerolog.InfoLevel)

// Configure replaces the global logger according to cfg.
// It is intended to be called once at startup, before any goroutines log.
func Configure(cfg Config) error {
	var out io.Writer
	switch cfg.Output {
	case "", "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log output: %w", err)
		}
		out = f
	}

	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "2006-01-02 15:04:05"}
	}

	level, err := parseLevel(cfg.Level)
	if err != nil {
		return err
	}

	log = zerolog.New(out).With().Timestamp().Logger().Level(level)
	return nil
}

// SetLevel adjusts the minimum level at runtime.
func SetLevel(level string) {
	l, err := parseLevel(level)
	if err != nil {
		return
	}
	log = log.Level(l)
}

func parseLevel(level string) (zerolog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "", "INFO":
		return zerolog.InfoLevel, nil
	case "DEBUG":
		return zerolog.DebugLevel, nil
	case "WARN":
		return zerolog.WarnLevel, nil
	case "ERROR":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

func Debug(format string, v ...any) {
	log.Debug().Msgf(format, v...)
}

func Info(format string, v ...any) {
	log.Info().Msgf(format, v...)
}

func Warn(format string, v ...any) {
	log.Warn().Msgf(format, v...)
}

func Error(format string, v ...any) {
	log.Error().Msgf(format, v...)
}
