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
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock lets tests move time forward without sleeping.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestMemoryBackend() (*MemoryBackend, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	backend := NewMemoryBackend()
	backend.clock = clock.Now
	return backend, clock
}

// TestMemoryBackend_PutGet tests basic round trips.
func TestMemoryBackend_PutGet(t *testing.T) {
	ctx := context.Background()
	backend, _ := newTestMemoryBackend()

	if err := backend.Put(ctx, "session:a", []byte("payload"), time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	value, ok, err := backend.Get(ctx, "session:a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected key to exist")
	}
	if string(value) != "payload" {
		t.Errorf("Value mismatch: got %q", value)
	}

	_, ok, err = backend.Get(ctx, "session:missing")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("Expected absent key")
	}
}

// TestMemoryBackend_LazyExpiry tests that stale entries behave as absent at
// read time, with no reaper involved.
func TestMemoryBackend_LazyExpiry(t *testing.T) {
	ctx := context.Background()
	backend, clock := newTestMemoryBackend()

	if err := backend.Put(ctx, "session:a", []byte("payload"), time.Second); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	clock.Advance(2 * time.Second)

	_, ok, err := backend.Get(ctx, "session:a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("Expected expired key to behave as absent")
	}
	if backend.Len() != 0 {
		t.Errorf("Expected opportunistic eviction on read, %d entries remain", backend.Len())
	}
}

// TestMemoryBackend_Refresh tests that refreshing restarts the window.
func TestMemoryBackend_Refresh(t *testing.T) {
	ctx := context.Background()
	backend, clock := newTestMemoryBackend()

	if err := backend.Put(ctx, "session:a", []byte("payload"), 10*time.Second); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	clock.Advance(9 * time.Second)
	if err := backend.Refresh(ctx, "session:a", 10*time.Second); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	clock.Advance(9 * time.Second)
	_, ok, _ := backend.Get(ctx, "session:a")
	if !ok {
		t.Error("Expected refreshed key to survive past the original window")
	}

	clock.Advance(11 * time.Second)
	_, ok, _ = backend.Get(ctx, "session:a")
	if ok {
		t.Error("Expected key to lapse after the refreshed window")
	}
}

// TestMemoryBackend_Delete verifies idempotent deletion.
func TestMemoryBackend_Delete(t *testing.T) {
	ctx := context.Background()
	backend, _ := newTestMemoryBackend()

	_ = backend.Put(ctx, "session:a", []byte("payload"), time.Minute)
	if err := backend.Delete(ctx, "session:a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := backend.Delete(ctx, "session:a"); err != nil {
		t.Errorf("Second delete should be a no-op, got %v", err)
	}
	if _, ok, _ := backend.Get(ctx, "session:a"); ok {
		t.Error("Expected key to be gone")
	}
}

// TestMemoryBackend_ListKeys tests prefix filtering and stale skipping.
func TestMemoryBackend_ListKeys(t *testing.T) {
	ctx := context.Background()
	backend, clock := newTestMemoryBackend()

	_ = backend.Put(ctx, "session:a", []byte("1"), time.Minute)
	_ = backend.Put(ctx, "session:b", []byte("2"), time.Second)
	_ = backend.Put(ctx, "other:c", []byte("3"), time.Minute)

	clock.Advance(2 * time.Second)

	keys, err := backend.ListKeys(ctx, "session:")
	if err != nil {
		t.Fatalf("ListKeys failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != "session:a" {
		t.Errorf("Expected only live session:a, got %v", keys)
	}
}

// TestMemoryBackend_EvictExpired tests the reaper's sweep path.
func TestMemoryBackend_EvictExpired(t *testing.T) {
	ctx := context.Background()
	backend, clock := newTestMemoryBackend()

	_ = backend.Put(ctx, "session:a", []byte("1"), time.Second)
	_ = backend.Put(ctx, "session:b", []byte("2"), time.Second)
	_ = backend.Put(ctx, "session:c", []byte("3"), time.Hour)

	clock.Advance(5 * time.Second)

	if evicted := backend.EvictExpired(); evicted != 2 {
		t.Errorf("Expected 2 evictions, got %d", evicted)
	}
	if backend.Len() != 1 {
		t.Errorf("Expected 1 surviving entry, got %d", backend.Len())
	}
	if evicted := backend.EvictExpired(); evicted != 0 {
		t.Errorf("Second sweep should find nothing, got %d", evicted)
	}
}

// TestMemoryBackend_GetReturnsCopy guards against aliasing of stored values.
func TestMemoryBackend_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	backend, _ := newTestMemoryBackend()

	original := []byte("payload")
	_ = backend.Put(ctx, "session:a", original, time.Minute)
	original[0] = 'X'

	value, _, _ := backend.Get(ctx, "session:a")
	if string(value) != "payload" {
		t.Errorf("Stored value was aliased to caller slice: %q", value)
	}

	value[0] = 'Y'
	again, _, _ := backend.Get(ctx, "session:a")
	if string(again) != "payload" {
		t.Errorf("Returned value was aliased to stored slice: %q", again)
	}
}

// TestMemoryBackend_ConcurrentAccess hammers the backend from independent
// goroutines while a sweeper runs, so the race detector can check the mutex
// discipline. Half the keys are already expired when the goroutines start.
func TestMemoryBackend_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	backend, clock := newTestMemoryBackend()

	for i := 0; i < 20; i++ {
		ttl := time.Hour
		if i%2 == 0 {
			ttl = time.Second
		}
		key := fmt.Sprintf("session:seed-%d", i)
		if err := backend.Put(ctx, key, []byte("payload"), ttl); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	// The clock stays fixed while the goroutines run; only the map is shared.
	clock.Advance(5 * time.Second)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				key := fmt.Sprintf("session:seed-%d", (w*50+i)%20)
				if _, _, err := backend.Get(ctx, key); err != nil {
					t.Errorf("Get failed: %v", err)
				}
				own := fmt.Sprintf("session:worker-%d-%d", w, i)
				if err := backend.Put(ctx, own, []byte("payload"), time.Hour); err != nil {
					t.Errorf("Put failed: %v", err)
				}
				if _, err := backend.ListKeys(ctx, "session:"); err != nil {
					t.Errorf("ListKeys failed: %v", err)
				}
				if i%10 == 9 {
					if err := backend.Delete(ctx, own); err != nil {
						t.Errorf("Delete failed: %v", err)
					}
				}
			}
		}(w)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			backend.EvictExpired()
		}
	}()
	wg.Wait()

	// Expired seeds are gone whether a sweep or a lazy read got there first.
	for i := 0; i < 20; i += 2 {
		key := fmt.Sprintf("session:seed-%d", i)
		if _, ok, _ := backend.Get(ctx, key); ok {
			t.Errorf("Expired key %s survived", key)
		}
	}
}
