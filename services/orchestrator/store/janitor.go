// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// =============================================================================
// Idle Session Janitor
// =============================================================================

// JanitorConfig holds configuration for the idle-session eviction
// scheduler.
//
// # Fields
//
//   - Interval: How often to run eviction cycles. Default: 10 minutes.
//   - IdleTTL: How long a session may sit untouched before eviction.
//     Default: 1 hour.
type JanitorConfig struct {
	Interval time.Duration
	IdleTTL  time.Duration
}

// DefaultJanitorConfig returns sensible defaults for the janitor.
func DefaultJanitorConfig() JanitorConfig {
	return JanitorConfig{
		Interval: 10 * time.Minute,
		IdleTTL:  1 * time.Hour,
	}
}

// Janitor evicts idle sessions in the background. Without it the store
// is unbounded in-memory state.
//
// Uses the ticker + done channel pattern for graceful shutdown. All
// public methods are thread-safe.
type Janitor struct {
	store   SessionStore
	config  JanitorConfig
	onEvict func(evicted []string)
	done    chan struct{}
	mu      sync.Mutex
	running bool
}

// NewJanitor creates a janitor over the given store. Zero config fields
// fall back to defaults.
func NewJanitor(store SessionStore, config JanitorConfig) *Janitor {
	if config.Interval <= 0 {
		config.Interval = DefaultJanitorConfig().Interval
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = DefaultJanitorConfig().IdleTTL
	}
	return &Janitor{
		store:  store,
		config: config,
		done:   make(chan struct{}),
	}
}

// SetOnEvict registers a callback invoked after each cycle that evicted
// at least one session. Must be called before Start.
func (j *Janitor) SetOnEvict(fn func(evicted []string)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.onEvict = fn
}

// Start begins the background eviction loop. Returns an error if the
// janitor is already running.
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return fmt.Errorf("janitor is already running")
	}
	j.running = true
	j.done = make(chan struct{}) // Reset done channel for potential restart
	j.mu.Unlock()

	slog.Info("Idle session janitor starting",
		"interval", j.config.Interval.String(),
		"idle_ttl", j.config.IdleTTL.String(),
	)

	go j.runLoop(ctx)
	return nil
}

// Stop gracefully stops the janitor. Safe to call multiple times.
func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.running {
		return
	}
	slog.Info("Idle session janitor stopping")
	close(j.done)
	j.running = false
}

// RunNow performs one eviction cycle immediately and returns the evicted
// session ids. Useful for manual invocation or testing.
func (j *Janitor) RunNow() []string {
	evicted := j.store.EvictIdle(time.Now().Add(-j.config.IdleTTL))
	if len(evicted) > 0 {
		slog.Info("Evicted idle sessions", "count", len(evicted), "session_ids", evicted)
		j.mu.Lock()
		fn := j.onEvict
		j.mu.Unlock()
		if fn != nil {
			fn(evicted)
		}
	} else {
		slog.Debug("Idle eviction cycle completed (no idle sessions)")
	}
	return evicted
}

func (j *Janitor) runLoop(ctx context.Context) {
	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Idle session janitor stopped (context cancelled)")
			return
		case <-j.done:
			slog.Info("Idle session janitor stopped (stop requested)")
			return
		case <-ticker.C:
			j.RunNow()
		}
	}
}
