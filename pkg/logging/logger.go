// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package logging builds the process-wide slog logger. Diagnostics go to
// stderr (stdout is reserved for the stdio tool protocol) or to a file.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the log output encoding.
type Format string

const (
	// FormatJSON emits one JSON object per record. Default.
	FormatJSON Format = "json"

	// FormatText emits human-readable key=value records.
	FormatText Format = "text"
)

// Config controls logger construction.
type Config struct {
	// Level is one of debug, info, warn, error. Default: info.
	Level string

	// Format selects json or text output. Default: json.
	Format Format

	// FilePath, when set, appends records to the file instead of stderr.
	FilePath string

	// Service is attached to every record as the "service" attribute.
	Service string
}

// ParseLevel maps a level name to its slog.Level. Unrecognized names
// fall back to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a logger from the config. The returned cleanup closes the
// log file when one was opened; it is a no-op otherwise.
func New(cfg Config) (*slog.Logger, func() error, error) {
	var (
		out     io.Writer = os.Stderr
		cleanup           = func() error { return nil }
	)
	if cfg.FilePath != "" {
		f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file %s: %w", cfg.FilePath, err)
		}
		out = f
		cleanup = f.Close
	}

	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == FormatText {
		handler = slog.NewTextHandler(out, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(out, handlerOpts)
	}

	logger := slog.New(handler)
	if cfg.Service != "" {
		logger = logger.With(slog.String("service", cfg.Service))
	}
	return logger, cleanup, nil
}

// Default returns a stderr JSON logger at info level.
func Default() *slog.Logger {
	logger, _, _ := New(Config{})
	return logger
}
