// Package logging provides the zerolog-based logger for the storefront.
//
// The terminal belongs to the TUI, so log output goes to a file. Before Init
// is called the logger is disabled.
//
//	logging.Init(logging.Config{Level: "debug", File: "storefront.log"})
//	logging.Info().Str("user", id).Msg("user selected")
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum log level: trace, debug, info, warn, error, disabled.
	Level string

	// Format is the output format: json or console.
	Format string

	// File is the log file path. Empty disables logging unless Output is set.
	File string

	// Output overrides File when non-nil.
	Output io.Writer
}

var (
	log  = zerolog.Nop()
	file *os.File
	mu   sync.RWMutex
)

// Init configures the global logger. It is safe to call more than once;
// a previously opened log file is closed.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	if file != nil {
		_ = file.Close()
		file = nil
	}

	out := cfg.Output
	if out == nil {
		if cfg.File == "" {
			log = zerolog.Nop()
			return nil
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log = zerolog.Nop()
			return err
		}
		file = f
		out = f
	}

	zerolog.TimeFieldFormat = time.RFC3339
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05", NoColor: true}
	}
	log = zerolog.New(out).Level(parseLevel(cfg.Level)).With().Timestamp().Logger()
	return nil
}

// Close flushes and closes the log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	log = zerolog.Nop()
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	return err
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Logger returns the global logger instance.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// With creates a child logger context, e.g. for a component field.
func With() zerolog.Context {
	mu.RLock()
	defer mu.RUnlock()
	return log.With()
}

func Debug() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return log.Debug()
}

func Info() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return log.Info()
}

func Warn() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return log.Warn()
}

func Error() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return log.Error()
}

// NewTestLogger creates a logger that writes JSON lines to w.
func NewTestLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}
