// Package logging configures the process-wide phuslu/log logger.
package logging

import (
	"io"
	"os"

	"github.com/phuslu/log"
)

// Setup points log.DefaultLogger at stderr. Stdout is never used: in CGI
// mode it carries the response.
func Setup(level string) {
	log.DefaultLogger = New(level, os.Stderr, log.IsTerminal(os.Stderr.Fd()))
}

// New returns a logger writing to w, colored when console is set.
func New(level string, w io.Writer, console bool) log.Logger {
	logger := log.Logger{
		Level:  ParseLevel(level),
		Caller: 1,
	}
	if console {
		logger.TimeFormat = "15:04:05"
		logger.Writer = &log.ConsoleWriter{
			Writer:         w,
			ColorOutput:    true,
			EndWithMessage: true,
		}
	} else {
		logger.Writer = log.IOWriter{Writer: w}
	}
	return logger
}

// ParseLevel is log.ParseLevel with unknown names mapped to info.
func ParseLevel(s string) log.Level {
	switch s {
	case "trace", "debug", "info", "warn", "error":
		return log.ParseLevel(s)
	}
	return log.InfoLevel
}
