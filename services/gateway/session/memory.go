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
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// memoryEntry holds a value with the information needed to judge staleness
// lazily. storedAt is reset by Put and Refresh.
type memoryEntry struct {
	value    []byte
	storedAt time.Time
	ttl      time.Duration
}

func (e *memoryEntry) expired(now time.Time) bool {
	if e.ttl <= 0 {
		return false
	}
	return now.Sub(e.storedAt) > e.ttl
}

// MemoryBackend is a process-local backend over a mutex-guarded map.
//
// # Description
//
// Expiry is lazy: an entry is judged stale at read time by comparing its
// stored-at instant against its TTL. Expired entries found during Get or
// ListKeys are removed opportunistically; the reaper sweeps the rest so
// memory is reclaimed even for keys nobody reads again.
//
// Logical correctness never depends on the reaper. A stale entry behaves as
// absent from the moment its window lapses.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	clock   func() time.Time
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]memoryEntry),
		clock:   time.Now,
	}
}

func (b *MemoryBackend) Name() string { return "memory" }

func (b *MemoryBackend) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	b.entries[key] = memoryEntry{value: stored, storedAt: b.clock(), ttl: ttl}
	return nil
}

func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry, ok := b.entries[key]
	if !ok {
		return nil, false, nil
	}
	if entry.expired(b.clock()) {
		delete(b.entries, key)
		return nil, false, nil
	}
	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, true, nil
}

func (b *MemoryBackend) Refresh(_ context.Context, key string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry, ok := b.entries[key]
	if !ok || entry.expired(b.clock()) {
		return nil
	}
	entry.storedAt = b.clock()
	entry.ttl = ttl
	b.entries[key] = entry
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, key)
	return nil
}

func (b *MemoryBackend) ListKeys(_ context.Context, prefix string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.clock()
	keys := make([]string, 0, len(b.entries))
	for key, entry := range b.entries {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if entry.expired(now) {
			delete(b.entries, key)
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// EvictExpired removes every stale entry and returns the count removed.
// Called periodically by the reaper.
func (b *MemoryBackend) EvictExpired() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.clock()
	evicted := 0
	for key, entry := range b.entries {
		if entry.expired(now) {
			delete(b.entries, key)
			evicted++
		}
	}
	if evicted > 0 {
		slog.Debug("Evicted expired session entries", "count", evicted)
	}
	return evicted
}

// Len returns the number of entries currently held, including any not yet
// judged stale.
func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

func (b *MemoryBackend) Close() error { return nil }
