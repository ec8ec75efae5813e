// Package logging builds the root zerolog logger shared by the CLI and
// every agent package: structured, field-based events instead of
// log.Printf call sites.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New builds a console-writer logger at the given level ("debug", "info",
// "warn", "error"; unknown values fall back to info).
func New(level string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	console := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	return zerolog.New(console).Level(lvl).With().Timestamp().Logger()
}

// Nop returns a logger that discards everything, used in tests.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
