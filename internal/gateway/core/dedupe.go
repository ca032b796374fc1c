// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package core provides the core business logic for the event ingest
// gateway: duplicate suppression, the summary ring, and the forward queue
// plus its background worker.
package core

import "sync"

// DuplicateWindow is a bounded, process-local mapping from fingerprint to
// last-seen timestamp with age-based eviction (C2). Cold start observes no
// duplicates; the window deliberately forgets across restarts.
//
// Note: per spec.md §9, eviction here walks the entire map on every call.
// TODO: switch to a time-ordered queue of fingerprints (evict from the head)
// if DEDUPE_WINDOW_MS or throughput grows large enough to make the full
// scan a hot-path cost.
type DuplicateWindow struct {
	mu       sync.Mutex
	lastSeen map[string]int64
	windowMs int64
}

// NewDuplicateWindow creates a window with the given horizon in milliseconds.
func NewDuplicateWindow(windowMs int64) *DuplicateWindow {
	return &DuplicateWindow{
		lastSeen: make(map[string]int64),
		windowMs: windowMs,
	}
}

// CheckAndRecord evicts stale entries, then reports whether fingerprint was
// already present within the window, recording nowMs as its new last-seen
// time either way. An empty fingerprint is never deduped.
func (d *DuplicateWindow) CheckAndRecord(fingerprint string, nowMs int64) bool {
	if fingerprint == "" {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for fp, ts := range d.lastSeen {
		if nowMs-ts > d.windowMs {
			delete(d.lastSeen, fp)
		}
	}

	_, duplicate := d.lastSeen[fingerprint]
	d.lastSeen[fingerprint] = nowMs
	return duplicate
}

// Size reports the number of fingerprints currently tracked (diagnostics).
func (d *DuplicateWindow) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.lastSeen)
}
