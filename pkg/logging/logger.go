// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging configures structured logging for Aleutian services.
//
// Services log JSON to stdout so container runtimes can collect them
// without extra plumbing. Local development can switch to human-readable
// text output with LOG_FORMAT=text.
//
// Basic usage:
//
//	logger := logging.Setup("voice-gateway-service")
//	logger.Info("session created", "session_id", id)
//
// Setup also installs the logger as the slog default, so packages that
// call slog.Info directly share the same handler.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Config controls logger construction. The zero value produces an
// Info-level JSON logger on stdout.
type Config struct {
	// Level is the minimum severity: "debug", "info", "warn", "error".
	Level string

	// Text switches from JSON to the text handler. JSON is the default
	// because log collectors expect one JSON object per line.
	Text bool

	// Service is attached to every record as the "service" attribute.
	Service string
}

// New builds a logger from cfg without touching the slog default.
func New(cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Text {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	if cfg.Service != "" {
		logger = logger.With("service", cfg.Service)
	}
	return logger
}

// Setup builds a logger for the named service from the LOG_LEVEL and
// LOG_FORMAT environment variables and installs it as the slog default.
func Setup(service string) *slog.Logger {
	logger := New(Config{
		Level:   os.Getenv("LOG_LEVEL"),
		Text:    strings.EqualFold(os.Getenv("LOG_FORMAT"), "text"),
		Service: service,
	})
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
