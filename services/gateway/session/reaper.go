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
	"log/slog"
	"sync"
	"time"
)

// =============================================================================
// Expired Session Reaper
// =============================================================================

// Evictor is the capability the reaper needs: sweep stale entries and report
// how many were removed. The in-memory backend implements it; Redis and
// Badger expire keys natively and need no reaper.
type Evictor interface {
	EvictExpired() int
}

// DefaultReaperInterval is how often the reaper sweeps stale entries.
const DefaultReaperInterval = 300 * time.Second

// ReaperConfig holds tunables for the background reaper.
type ReaperConfig struct {
	// Interval between sweeps. Defaults to DefaultReaperInterval.
	Interval time.Duration

	// OnEvict, when non-nil, is invoked after each sweep that removed
	// entries. Used to feed metrics.
	OnEvict func(count int)
}

// Reaper periodically reclaims memory held by expired sessions.
//
// # Description
//
// The reaper exists only for memory reclamation. Expiry correctness never
// depends on it: the in-memory backend already treats stale entries as
// absent at read time. Uses the ticker + done channel pattern for graceful
// shutdown.
//
// # Thread Safety
//
// All public methods are thread-safe.
type Reaper struct {
	evictor Evictor
	config  ReaperConfig
	done    chan struct{}
	mu      sync.Mutex
	running bool
}

// NewReaper creates a reaper over the given evictor. Not started until
// Start() is called.
func NewReaper(evictor Evictor, config ReaperConfig) *Reaper {
	if config.Interval <= 0 {
		config.Interval = DefaultReaperInterval
	}
	return &Reaper{
		evictor: evictor,
		config:  config,
		done:    make(chan struct{}),
	}
}

// Start begins the background sweep loop. Returns an error if the reaper is
// already running. The loop stops when Stop() is called or ctx is cancelled.
func (r *Reaper) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("session reaper is already running")
	}
	r.running = true
	r.done = make(chan struct{}) // Reset done channel for potential restart
	r.mu.Unlock()

	slog.Info("Session reaper starting", "interval", r.config.Interval.String())
	go r.runLoop(ctx)
	return nil
}

// Stop signals the sweep loop to exit. Safe to call multiple times.
func (r *Reaper) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return nil
	}

	slog.Info("Session reaper stopping")
	close(r.done)
	r.running = false
	return nil
}

// RunNow performs one sweep immediately and returns the number of entries
// removed. Does not affect the scheduled sweep timing.
func (r *Reaper) RunNow() int {
	return r.sweep()
}

func (r *Reaper) runLoop(ctx context.Context) {
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Session reaper stopped (context cancelled)")
			return
		case <-r.done:
			slog.Info("Session reaper stopped (stop requested)")
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

func (r *Reaper) sweep() int {
	evicted := r.evictor.EvictExpired()
	if evicted > 0 {
		slog.Info("Session reaper removed expired sessions", "count", evicted)
		if r.config.OnEvict != nil {
			r.config.OnEvict(evicted)
		}
	}
	return evicted
}
