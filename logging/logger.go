package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger. Logs go to stderr so command
// output on stdout stays clean.
func Init(serviceName, env, level string) zerolog.Logger {
	return InitWriter(os.Stderr, serviceName, env, level)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, serviceName, env, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	if env == "development" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}).With().
			Timestamp().
			Str("service", serviceName).
			Logger().
			Level(lvl)
	} else {
		log.Logger = zerolog.New(w).
			With().
			Timestamp().
			Caller().
			Str("service", serviceName).
			Logger().
			Level(lvl)
	}
	return log.Logger
}

// Get returns the global logger
func Get() zerolog.Logger {
	return log.Logger
}
