// Package logger constructs the application wide slog logger backed by
// charmbracelet/log for human friendly terminal output.
package logger

import (
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// New returns a slog.Logger writing to stderr. Debug mode lowers the level
// and reports caller locations.
func New(debug bool) *slog.Logger {
	level := charmlog.InfoLevel
	if debug {
		level = charmlog.DebugLevel
	}
	handler := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		Level:           level,
		ReportTimestamp: true,
		ReportCaller:    debug,
	})
	return slog.New(handler)
}
