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

package core

import "sync"

// SummaryRecord is one entry in the Summary Ring: {ts_ms, fingerprint,
// bytes, duplicate}.
type SummaryRecord struct {
	TsMs        int64  `json:"ts_ms"`
	Fingerprint string `json:"fingerprint"`
	Bytes       int    `json:"bytes"`
	Duplicate   bool   `json:"duplicate"`
}

// SummaryRing is a fixed-capacity, ordered sequence of SummaryRecord (C3).
// Push trims from the front so |ring| never exceeds its capacity; the
// newest record is always at the tail.
type SummaryRing struct {
	mu       sync.Mutex
	records  []SummaryRecord
	capacity int
}

// NewSummaryRing creates a ring with the given hard capacity (STORE_LIMIT).
func NewSummaryRing(capacity int) *SummaryRing {
	return &SummaryRing{capacity: capacity}
}

// Push appends a record, dropping the oldest entry on overflow.
func (r *SummaryRing) Push(rec SummaryRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	if over := len(r.records) - r.capacity; over > 0 {
		r.records = r.records[over:]
	}
}

// Tail returns the last min(k, |ring|) records, oldest first.
func (r *SummaryRing) Tail(k int) []SummaryRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	if k > len(r.records) {
		k = len(r.records)
	}
	out := make([]SummaryRecord, k)
	copy(out, r.records[len(r.records)-k:])
	return out
}

// Len reports the current number of stored records.
func (r *SummaryRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}
