// Package logger builds the process-wide zerolog logger the server runs
// with. The server passes the logger down by value, so the package only
// needs construction, not a global accessor.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Init configures zerolog once for the process and returns the root logger.
// level names the minimum severity (trace, debug, info, warn, error; an
// unrecognised name means info). pretty switches to console output for local
// runs; the default is JSON lines on stdout.
func Init(level string, pretty bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var out io.Writer = os.Stdout
	if pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	lvl := ParseLevel(level)
	zerolog.SetGlobalLevel(lvl)
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// ParseLevel maps a configured level name to its zerolog level, defaulting
// to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
