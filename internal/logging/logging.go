// Package logging builds the structured logger shared by the segment core
// and its driver.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New returns a zerolog.Logger writing JSON lines to w (os.Stderr when w is
// nil); passing a zerolog.ConsoleWriter, as Console does, gives
// human-readable output instead. levelName is parsed case-insensitively
// ("debug", "info", "warn", "error"); an unknown or empty value falls back
// to "info".
func New(levelName string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}

	level, err := zerolog.ParseLevel(strings.ToLower(levelName))
	if err != nil || levelName == "" {
		level = zerolog.InfoLevel
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Console wraps New with zerolog's ConsoleWriter for colorized, human-read
// output, better suited to a CLI-driven tool than raw JSON lines.
func Console(levelName string) zerolog.Logger {
	return New(levelName, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
}
