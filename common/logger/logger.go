// Package logger provides the service-wide leveled logger, backed by zerolog.
package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

var log = zerolog.New(os.Stderr).With().Timestamp().Logger()

// SetLevel sets the minimum level from a string ("debug", "info", "warn", "error").
func SetLevel(level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		log = log.Level(zerolog.DebugLevel)
	case "warn", "warning":
		log = log.Level(zerolog.WarnLevel)
	case "error":
		log = log.Level(zerolog.ErrorLevel)
	default:
		log = log.Level(zerolog.InfoLevel)
	}
}

// Pretty switches to human-readable console output (for local runs).
func Pretty() {
	log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// Debugf logs a debug message.
func Debugf(format string, args ...interface{}) { log.Debug().Msgf(format, args...) }

// Infof logs an info message.
func Infof(format string, args ...interface{}) { log.Info().Msgf(format, args...) }

// Warnf logs a warning message.
func Warnf(format string, args ...interface{}) { log.Warn().Msgf(format, args...) }

// Errorf logs an error message.
func Errorf(format string, args ...interface{}) { log.Error().Msgf(format, args...) }

// With returns a zerolog context logger carrying structured fields, for call
// sites that want more than the printf helpers (request IDs, stages).
func With() zerolog.Context {
	return log.With()
}
