// Package logger provides the adapter's structured, global logger.
// Adapted from the teacher's internal/logger: same Init/InitFromEnv
// shape and leveled helpers, with the HTTP/DB-specific convenience
// wrappers replaced by ones relevant to a metering event loop.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var log zerolog.Logger

// Config holds logger configuration.
type Config struct {
	Level      string // debug, info, warn, error
	Pretty     bool   // Use console writer for development
	TimeFormat string
}

// DefaultConfig returns default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Pretty:     false,
		TimeFormat: time.RFC3339,
	}
}

// Init initializes the global logger.
func Init(cfg Config) {
	var output io.Writer = os.Stdout

	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: cfg.TimeFormat,
		}
	}

	level := parseLevel(cfg.Level)
	zerolog.TimeFieldFormat = cfg.TimeFormat

	log = zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// InitFromEnv initializes the logger from environment variables,
// falling back to DefaultConfig values.
func InitFromEnv() {
	cfg := DefaultConfig()

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Level = level
	}
	if os.Getenv("LOG_PRETTY") == "true" {
		cfg.Pretty = true
	}

	Init(cfg)
}

// SetLevel adjusts the active log level without reinitializing output,
// used when config.logging.level is read after bootstrap has already
// called InitFromEnv.
func SetLevel(level string) {
	log = log.Level(parseLevel(level))
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get returns the global logger.
func Get() zerolog.Logger { return log }

func Debug() *zerolog.Event { return log.Debug() }
func Info() *zerolog.Event  { return log.Info() }
func Warn() *zerolog.Event  { return log.Warn() }
func Error() *zerolog.Event { return log.Error() }
func Fatal() *zerolog.Event { return log.Fatal() }

// WithService returns a logger tagged with a service/component name.
func WithService(name string) zerolog.Logger {
	return log.With().Str("service", name).Logger()
}

// Tick logs the outcome of one event-loop iteration.
func Tick(now time.Time, sleepFor time.Duration) {
	log.Debug().
		Time("now", now).
		Dur("sleep", sleepFor).
		Msg("tick completed")
}

// MeteringResult logs the outcome of a metering attempt.
func MeteringResult(emptyMetering bool, dimensions int, err error) {
	event := log.Info().
		Bool("empty_metering", emptyMetering).
		Int("dimensions", dimensions)

	if err != nil {
		event.Err(err).Msg("metering attempt failed")
	} else {
		event.Msg("metering attempt completed")
	}
}

// HookFailure logs a failed external-collaborator call after the retry
// budget has been exhausted.
func HookFailure(hook string, err error) {
	log.Warn().Str("hook", hook).Err(err).Msg("hook call failed after retries")
}
