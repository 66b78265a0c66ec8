// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import (
	"log/slog"
	"time"
)

// Backend modes accepted by SESSION_BACKEND.
const (
	ModeRedis  = "redis"
	ModeBadger = "badger"
	ModeMemory = "memory"
)

// BackendConfig selects and configures a session backend.
type BackendConfig struct {
	// Mode is one of "redis", "badger", "memory". Unknown values fall back
	// to "memory" with a warning.
	Mode string

	// RedisURL is the connection string for the redis mode
	// (redis://host:port/db).
	RedisURL string

	// BadgerPath is the database directory for the badger mode.
	BadgerPath string

	// TTL is the sliding inactivity window applied by the backend.
	TTL time.Duration
}

// NewBackend constructs the configured backend, probing connectivity at
// construction time. When a shared or persistent backend is unreachable the
// factory falls back to the in-memory backend so the gateway still starts;
// the degradation is logged, never fatal.
func NewBackend(cfg BackendConfig) Backend {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultSessionTTL
	}

	switch cfg.Mode {
	case ModeRedis:
		backend, err := NewRedisBackend(cfg.RedisURL, cfg.TTL)
		if err != nil {
			slog.Warn("Redis unavailable, falling back to in-memory sessions",
				"url", cfg.RedisURL, "error", err)
			return NewMemoryBackend()
		}
		return backend

	case ModeBadger:
		backend, err := NewBadgerBackend(cfg.BadgerPath, slog.Default())
		if err != nil {
			slog.Warn("Badger unavailable, falling back to in-memory sessions",
				"path", cfg.BadgerPath, "error", err)
			return NewMemoryBackend()
		}
		return backend

	case ModeMemory, "":
		return NewMemoryBackend()

	default:
		slog.Warn("Unknown session backend mode, using in-memory sessions", "mode", cfg.Mode)
		return NewMemoryBackend()
	}
}
