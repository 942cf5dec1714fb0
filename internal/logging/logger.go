package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LevelEnv names the environment variable holding the log level
const LevelEnv = "IMAGE_LABELER_LOG_LEVEL"

// Init initializes the global logger with configuration from environment variables.
// IMAGE_LABELER_LOG_LEVEL controls the log level: debug, info, warn, error (default: info)
func Init() {
	InitWithWriter(os.Stderr, os.Getenv(LevelEnv))
}

// InitWithWriter points the global console logger at out with the given level
func InitWithWriter(out io.Writer, level string) {
	zerolog.SetGlobalLevel(ParseLevel(level))
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: out})
}

// ParseLevel maps a level name to a zerolog level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithRunID tags every subsequent global log event with the run identifier
func WithRunID(runID string) {
	log.Logger = log.With().Str("run_id", runID).Logger()
}
