// Package logging configures the global zerolog logger.
package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global zerolog logger and returns it. Pretty
// enables the human-readable console writer; the default is JSON on
// stderr.
func Setup(level string, pretty bool) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(level))

	var logger zerolog.Logger
	if pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	log.Logger = logger
	return logger
}

// NewLogger creates a logger tagged with a component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
