// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package logging wires the chainindexer CLI's log output: a rotating file
// writer plus a TTY-aware color writer, with the actual structured logging
// calls going through github.com/luxfi/log via the chainindexer log
// compatibility package.
package logging

import (
	"io"
	"os"

	chainindexerlog "github.com/luxfi/chainindexer/log"
	luxlog "github.com/luxfi/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where log output goes and how verbose it is.
type Config struct {
	Level      string // trace, debug, info, warn, error, crit
	FilePath   string // empty disables file logging
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// DefaultConfig matches the teacher's cmd/evm-node default of info-level,
// color terminal output, with file logging off unless a path is given.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		MaxSizeMB:  100,
		MaxBackups: 5,
		MaxAgeDays: 14,
	}
}

// Setup constructs the process-wide writer and installs it as the default
// logger via luxlog.SetDefault, returning the root Logger for callers that
// want to derive scoped children with New(component, name).
func Setup(cfg Config) (luxlog.Logger, error) {
	var writers []io.Writer
	writers = append(writers, terminalWriter(os.Stderr))

	if cfg.FilePath != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
	}

	var out io.Writer
	if len(writers) == 1 {
		out = writers[0]
	} else {
		out = io.MultiWriter(writers...)
	}

	_, err := chainindexerlog.LvlFromString(cfg.Level)
	if err != nil {
		return nil, err
	}

	logger := chainindexerlog.NewLogger(chainindexerlog.NewTerminalHandler(out, true))
	chainindexerlog.SetDefault(logger)
	return logger, nil
}

// terminalWriter wraps w with go-colorable when it looks like a real
// terminal, mirroring cmd/evm-node's NewTerminalHandlerWithLevel usage.
func terminalWriter(w *os.File) io.Writer {
	if isatty.IsTerminal(w.Fd()) || isatty.IsCygwinTerminal(w.Fd()) {
		return colorable.NewColorable(w)
	}
	return w
}

// Component returns a child logger scoped to name, following the teacher's
// New(ctx ...interface{}) convention.
func Component(name string) luxlog.Logger {
	return chainindexerlog.New("component", name)
}
