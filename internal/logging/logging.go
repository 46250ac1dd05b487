// Package logging builds the slog loggers used by the command and the viewer.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Level maps a config level name onto the charm levels. Unknown names are info.
// "trace" is debug with caller reporting.
func Level(name string) (lvl log.Level, caller bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return log.DebugLevel, true
	case "debug":
		return log.DebugLevel, false
	case "warn", "warning":
		return log.WarnLevel, false
	case "error":
		return log.ErrorLevel, false
	}
	return log.InfoLevel, false
}

// NewHandler returns a charm handler writing to w, stderr when w is nil.
// Timestamps are only printed at debug and trace.
func NewHandler(level string, format Format, w io.Writer) slog.Handler {
	if w == nil {
		w = os.Stderr
	}
	lvl, caller := Level(level)

	opts := log.Options{
		Level:           lvl,
		ReportCaller:    caller,
		ReportTimestamp: lvl <= log.DebugLevel,
		Prefix:          "prefabpreview",
	}
	if format == FormatJSON {
		opts.Formatter = log.JSONFormatter
		opts.ReportTimestamp = true
	}
	return log.NewWithOptions(w, opts)
}

func New(level string, format Format, w io.Writer) *slog.Logger {
	return slog.New(NewHandler(level, format, w))
}

// Setup installs a logger as the slog default and returns it.
func Setup(level string, json bool) *slog.Logger {
	format := FormatText
	if json {
		format = FormatJSON
	}
	logger := New(level, format, nil)
	slog.SetDefault(logger)
	return logger
}
