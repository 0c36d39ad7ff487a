// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures zerolog for the given environment and returns the logger.
func Setup(environment string) zerolog.Logger {
	return SetupWithWriter(environment, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"})
}

// SetupWithWriter configures zerolog to write to w.
func SetupWithWriter(environment string, w io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	logger := zerolog.New(w).With().Timestamp().Logger().Level(LevelFor(environment))
	log.Logger = logger
	return logger
}

// LevelFor returns debug for development environments and info otherwise.
func LevelFor(environment string) zerolog.Level {
	switch strings.ToLower(environment) {
	case "development", "dev", "debug":
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

// Component returns a child of the global logger tagged with a component name.
func Component(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}
