// Package logging builds the structured logger shared by the server, the dispatcher and the CLI.
package logging

import (
	"io"
	"os"

	"github.com/phuslu/log"
)

// Options selects the level and output encoding.
type Options struct {
	Level  string // trace, debug, info, warn, error
	Format string // console or json
	Output io.Writer
}

// New returns a logger for opts. Unknown levels fall back to info; Output defaults to stderr.
func New(opts Options) *log.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	var writer log.Writer
	if opts.Format == "json" {
		writer = &log.IOWriter{Writer: out}
	} else {
		writer = &log.ConsoleWriter{
			Writer:         out,
			ColorOutput:    out == os.Stderr && log.IsTerminal(os.Stderr.Fd()),
			QuoteString:    true,
			EndWithMessage: true,
		}
	}

	return &log.Logger{
		Level:      parseLevel(opts.Level),
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Writer:     writer,
	}
}

// Discard returns a logger that drops every entry. Used by tests and optional dependencies.
func Discard() *log.Logger {
	return &log.Logger{Level: log.PanicLevel, Writer: &log.IOWriter{Writer: io.Discard}}
}

func parseLevel(level string) log.Level {
	switch level {
	case "trace", "debug", "info", "warn", "error":
		return log.ParseLevel(level)
	default:
		return log.InfoLevel
	}
}
