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

import "testing"

func TestDuplicateWindow_FirstSeenNotDuplicate(t *testing.T) {
	w := NewDuplicateWindow(2000)
	if w.CheckAndRecord("fp1", 1000) {
		t.Fatalf("first sighting of fp1 must not be reported as a duplicate")
	}
}

func TestDuplicateWindow_WithinWindowIsDuplicate(t *testing.T) {
	w := NewDuplicateWindow(2000)
	w.CheckAndRecord("fp1", 1000)
	if !w.CheckAndRecord("fp1", 1500) {
		t.Fatalf("second sighting within the window must be reported as a duplicate")
	}
}

func TestDuplicateWindow_OutsideWindowIsNotDuplicate(t *testing.T) {
	w := NewDuplicateWindow(2000)
	w.CheckAndRecord("fp1", 1000)
	if w.CheckAndRecord("fp1", 3001) {
		t.Fatalf("sighting after the window elapsed must not be reported as a duplicate")
	}
}

func TestDuplicateWindow_EmptyFingerprintNeverDeduped(t *testing.T) {
	w := NewDuplicateWindow(2000)
	if w.CheckAndRecord("", 1000) {
		t.Fatalf("empty fingerprint must never be reported as a duplicate")
	}
	if w.CheckAndRecord("", 1001) {
		t.Fatalf("empty fingerprint must never be reported as a duplicate, even repeated")
	}
	if w.Size() != 0 {
		t.Fatalf("empty fingerprint must not be recorded, got size %d", w.Size())
	}
}

func TestDuplicateWindow_EvictsStaleEntries(t *testing.T) {
	w := NewDuplicateWindow(100)
	w.CheckAndRecord("a", 0)
	w.CheckAndRecord("b", 50)
	w.CheckAndRecord("c", 500) // evicts "a" (age 500 > 100) and "b" (age 450 > 100)
	if w.Size() != 1 {
		t.Fatalf("expected only the freshest fingerprint to survive eviction, got size %d", w.Size())
	}
}
