// Package log provides a compatibility layer for go-ethereum style logging
// that redirects to luxfi/log
package log

import (
	"io"
	"log/slog"

	luxlog "github.com/luxfi/log"
)

// Re-export types and constants from luxfi/log
type (
	Logger = luxlog.Logger
)

// Re-export functions from luxfi/log
var (
	New = luxlog.New
)

// NewLogger returns a logger with the specified handler set
func NewLogger(h slog.Handler) Logger {
	// For compatibility, we ignore the handler and return a luxfi logger
	return luxlog.Root()
}

// LvlFromString returns the appropriate level from a string name
func LvlFromString(lvlString string) (slog.Level, error) {
	level, err := luxlog.ToLevel(lvlString)
	return slog.Level(level), err
}

// SetDefault sets the default logger
func SetDefault(l Logger) {
	luxlog.SetDefault(l)
}

// NewTerminalHandler creates a handler that writes to terminal
func NewTerminalHandler(w io.Writer, useColor bool) slog.Handler {
	return slog.NewTextHandler(w, nil)
}
