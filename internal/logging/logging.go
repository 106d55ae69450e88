// Package logging builds the leveled loggers shared by the dashboard packages.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/labstack/gommon/log"
)

// New returns a logger writing to stdout at the named level.
func New(prefix, level string) *log.Logger {
	l := log.New(prefix)
	l.SetOutput(os.Stdout)
	l.SetHeader("${time_rfc3339} ${level} ${prefix} ${short_file}:${line}")
	l.SetLevel(ParseLevel(level))
	return l
}

// Discard returns a logger that drops everything. Used when a component
// is constructed without one.
func Discard() *log.Logger {
	l := log.New("-")
	l.SetOutput(io.Discard)
	l.SetLevel(log.OFF)
	return l
}

// ParseLevel maps a config string to a gommon level, defaulting to INFO.
func ParseLevel(level string) log.Lvl {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off", "none":
		return log.OFF
	default:
		return log.INFO
	}
}
