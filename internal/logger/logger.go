package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger is the process-wide root logger. It is built at package init so
// component loggers derived in other packages' var blocks share the same
// writer; Initialize only adjusts the global level afterwards.
var Logger = newRootLogger()

func newRootLogger() zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "2006-01-02 15:04:05",
	}

	return zerolog.New(output).
		With().
		Timestamp().
		Caller().
		Logger()
}

// Initialize sets the global log level. Level names follow zerolog
// ("trace", "debug", "info", "warn", "error"); anything unrecognized falls
// back to info.
func Initialize(logLevel string) {
	level, err := zerolog.ParseLevel(strings.ToLower(logLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Route the standard zerolog helpers through the same writer.
	log.Logger = Logger
}

// Get returns the root logger.
func Get() *zerolog.Logger {
	return &Logger
}

// GetForComponent returns a logger tagged with a component field so output
// can be filtered per subsystem.
func GetForComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}
