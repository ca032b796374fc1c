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
	"encoding/json"
	"fmt"
	"os"

	"eventgate/pkg/clock"
)

// ReplayState is the persisted replay cursor: {offset, updated_at,
// last_error, sent, failed}. Offset is the first byte not yet successfully
// replayed; it advances only after every record in a tick succeeds.
type ReplayState struct {
	Offset    int64   `json:"offset"`
	UpdatedAt string  `json:"updated_at"`
	LastError *string `json:"last_error"`
	Sent      int64   `json:"sent"`
	Failed    int64   `json:"failed"`
}

// StateStore loads and atomically persists ReplayState to a JSON file
// alongside the spool.
type StateStore struct {
	path string
	clk  clock.Clock
}

// NewStateStore returns a store backed by path.
func NewStateStore(path string, clk clock.Clock) *StateStore {
	if clk == nil {
		clk = clock.Real{}
	}
	return &StateStore{path: path, clk: clk}
}

// Load returns the zero-value state if the file is missing or malformed.
func (s *StateStore) Load() ReplayState {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return ReplayState{}
	}
	var st ReplayState
	if err := json.Unmarshal(data, &st); err != nil {
		return ReplayState{}
	}
	return st
}

// Save writes state atomically: it writes to a temp file in the same
// directory, then renames over the target, so a reader never observes a
// partially-written file — either the previous version or the new one.
func (s *StateStore) Save(state ReplayState) error {
	state.UpdatedAt = clock.ISO8601(s.clk.Now())

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal replay state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write replay state temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename replay state file: %w", err)
	}
	return nil
}
