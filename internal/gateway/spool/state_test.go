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

package spool

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStateStore_LoadMissingReturnsZeroValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replay_state.json")
	s := NewStateStore(path, &fakeClock{t: time.Now()})

	state := s.Load()
	if state.Offset != 0 || state.Sent != 0 {
		t.Fatalf("expected zero-value state for a missing file, got %+v", state)
	}
}

func TestStateStore_SaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replay_state.json")
	clk := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := NewStateStore(path, clk)

	err := s.Save(ReplayState{Offset: 128, Sent: 4, Failed: 1})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded := s.Load()
	if loaded.Offset != 128 || loaded.Sent != 4 || loaded.Failed != 1 {
		t.Fatalf("round-tripped state mismatch: %+v", loaded)
	}
	if loaded.UpdatedAt == "" {
		t.Fatalf("expected Save to stamp UpdatedAt")
	}
}

func TestStateStore_LoadMalformedReturnsZeroValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "replay_state.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("failed to seed malformed state file: %v", err)
	}

	s := NewStateStore(path, &fakeClock{t: time.Now()})
	state := s.Load()
	if state.Offset != 0 {
		t.Fatalf("expected zero-value state for a malformed file, got %+v", state)
	}
}
