package cliconfig

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logger zerolog.Logger

func init() {
	logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

// Logger returns the process logger. Diagnostics go to stderr; stdout is
// reserved for the checkpoint stream.
func Logger() zerolog.Logger {
	return logger
}
