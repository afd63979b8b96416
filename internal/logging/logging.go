// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// New builds a logger: JSON in release mode, text otherwise. An unknown
// level falls back to info.
func New(level, ginMode string) *log.Logger {
	return NewWithOutput(level, ginMode, os.Stdout)
}

func NewWithOutput(level, ginMode string, out io.Writer) *log.Logger {
	l := log.New()
	l.SetOutput(out)
	if ginMode == "release" {
		l.SetFormatter(&log.JSONFormatter{})
	} else {
		l.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	l.SetLevel(lvl)
	return l
}

// Discard is a logger for tests.
func Discard() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}
