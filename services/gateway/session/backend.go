// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session implements the session lifecycle store.
//
// The store persists session records through a narrow key/value backend
// interface with per-key expiry. Three backends exist: Redis (shared across
// service instances), Badger (persistent, single instance), and an in-memory
// map (process local). The store's semantics are identical across backends;
// only durability and sharing differ.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// Backend Interface
// =============================================================================

// Backend is the key/value adapter beneath the session store.
//
// # Description
//
// Backends store opaque byte values with per-key expiry. Keys are plain
// strings; the store prepends a namespace prefix before calling any method.
// All operations honor context cancellation where the underlying client
// supports it.
//
// # Contract
//
//   - Put overwrites any existing value and resets the key's expiry.
//   - Get returns ok=false for absent or expired keys without error.
//   - Refresh resets the expiry window of an existing key to now+ttl.
//     Refreshing an absent key is not an error.
//   - Delete is idempotent.
//   - ListKeys returns all live keys with the given prefix. Ordering is
//     unspecified.
type Backend interface {
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Refresh(ctx context.Context, key string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	Name() string
	Close() error
}

// =============================================================================
// Errors
// =============================================================================

// ErrBackendUnavailable is wrapped by BackendError so callers can detect
// infrastructure failures with errors.Is.
var ErrBackendUnavailable = errors.New("session backend unavailable")

// BackendError reports a failed backend operation. It unwraps to
// ErrBackendUnavailable.
type BackendError struct {
	Backend string // backend name, e.g. "redis"
	Op      string // operation, e.g. "put"
	Err     error  // underlying client error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("session backend %s: %s failed: %v", e.Backend, e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return ErrBackendUnavailable
}

// IsBackendUnavailable reports whether err originated from a backend failure.
func IsBackendUnavailable(err error) bool {
	return errors.Is(err, ErrBackendUnavailable)
}

func backendErr(backend, op string, err error) error {
	return &BackendError{Backend: backend, Op: op, Err: err}
}
