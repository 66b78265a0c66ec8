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
	"testing"
	"time"
)

// TestReaper_RunNow tests an immediate sweep.
func TestReaper_RunNow(t *testing.T) {
	ctx := context.Background()
	backend, clock := newTestMemoryBackend()

	_ = backend.Put(ctx, "session:a", []byte("1"), time.Second)
	_ = backend.Put(ctx, "session:b", []byte("2"), time.Hour)
	clock.Advance(5 * time.Second)

	var reported int
	reaper := NewReaper(backend, ReaperConfig{
		Interval: time.Hour,
		OnEvict:  func(count int) { reported = count },
	})

	if evicted := reaper.RunNow(); evicted != 1 {
		t.Errorf("Expected 1 eviction, got %d", evicted)
	}
	if reported != 1 {
		t.Errorf("Expected OnEvict to report 1, got %d", reported)
	}
	if evicted := reaper.RunNow(); evicted != 0 {
		t.Errorf("Second sweep should find nothing, got %d", evicted)
	}
}

// TestReaper_StartStop tests the lifecycle guards.
func TestReaper_StartStop(t *testing.T) {
	backend, _ := newTestMemoryBackend()
	reaper := NewReaper(backend, ReaperConfig{Interval: time.Hour})

	ctx := context.Background()
	if err := reaper.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := reaper.Start(ctx); err == nil {
		t.Error("Expected second Start to fail")
	}

	if err := reaper.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
	if err := reaper.Stop(); err != nil {
		t.Errorf("Second Stop should be a no-op, got %v", err)
	}

	// A stopped reaper can be restarted.
	if err := reaper.Start(ctx); err != nil {
		t.Errorf("Restart failed: %v", err)
	}
	_ = reaper.Stop()
}

// TestReaper_DefaultInterval verifies the interval fallback.
func TestReaper_DefaultInterval(t *testing.T) {
	backend, _ := newTestMemoryBackend()
	reaper := NewReaper(backend, ReaperConfig{})
	if reaper.config.Interval != DefaultReaperInterval {
		t.Errorf("Expected default interval %v, got %v", DefaultReaperInterval, reaper.config.Interval)
	}
}
