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
)

func writeLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	var content string
	for _, l := range lines {
		content += l + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to seed spool file: %v", err)
	}
}

func TestReadFrom_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.jsonl")
	result, err := ReadFrom(path, 0, 1<<20)
	if err != nil {
		t.Fatalf("expected no error for a missing file, got %v", err)
	}
	if !result.EOF || len(result.Records) != 0 {
		t.Fatalf("expected an empty EOF result for a missing file, got %+v", result)
	}
}

func TestReadFrom_ParsesCompleteLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	writeLines(t, path,
		`{"ts":"t1","kind":"ingest","job_id":"job_1"}`,
		`{"ts":"t2","kind":"ingest","job_id":"job_2"}`,
	)

	result, err := ReadFrom(path, 0, 1<<20)
	if err != nil {
		t.Fatalf("ReadFrom failed: %v", err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(result.Records))
	}
	if result.Records[0].JobID != "job_1" || result.Records[1].JobID != "job_2" {
		t.Fatalf("unexpected record contents: %+v", result.Records)
	}
	if !result.EOF {
		t.Fatalf("expected EOF once the offset reaches file size")
	}
}

func TestReadFrom_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	writeLines(t, path,
		`{"ts":"t1","kind":"ingest","job_id":"job_1"}`,
		`not json at all`,
		`{"ts":"t2","kind":"ingest","job_id":"job_2"}`,
	)

	result, err := ReadFrom(path, 0, 1<<20)
	if err != nil {
		t.Fatalf("ReadFrom failed: %v", err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("expected malformed line to be silently skipped, got %d records", len(result.Records))
	}
}

func TestReadFrom_IncompleteTrailingLineNotConsumed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	complete := `{"ts":"t1","kind":"ingest","job_id":"job_1"}` + "\n"
	incomplete := `{"ts":"t2","kind":"ingest"` // no trailing newline
	if err := os.WriteFile(path, []byte(complete+incomplete), 0o644); err != nil {
		t.Fatalf("failed to seed spool file: %v", err)
	}

	result, err := ReadFrom(path, 0, 1<<20)
	if err != nil {
		t.Fatalf("ReadFrom failed: %v", err)
	}
	if len(result.Records) != 1 {
		t.Fatalf("expected only the complete line to be parsed, got %d records", len(result.Records))
	}
	if int(result.NewOffset) != len(complete) {
		t.Fatalf("expected NewOffset to stop right after the last newline, got %d want %d", result.NewOffset, len(complete))
	}
	if result.EOF {
		t.Fatalf("expected EOF=false since a trailing incomplete line remains unread")
	}
}

func TestReadFrom_OffsetAtEOF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	writeLines(t, path, `{"ts":"t1","kind":"ingest","job_id":"job_1"}`)

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}

	result, err := ReadFrom(path, info.Size(), 1<<20)
	if err != nil {
		t.Fatalf("ReadFrom failed: %v", err)
	}
	if !result.EOF || len(result.Records) != 0 {
		t.Fatalf("expected no records when offset is already at EOF, got %+v", result)
	}
}

func TestTailLines_ReturnsMostRecent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	writeLines(t, path,
		`{"ts":"t1","kind":"ingest","job_id":"job_1"}`,
		`{"ts":"t2","kind":"ingest","job_id":"job_2"}`,
		`{"ts":"t3","kind":"ingest","job_id":"job_3"}`,
	)

	records, err := TailLines(path, 2, 1<<20)
	if err != nil {
		t.Fatalf("TailLines failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].JobID != "job_2" || records[1].JobID != "job_3" {
		t.Fatalf("expected the last 2 records in order, got %+v", records)
	}
}

func TestTailLines_MissingFileReturnsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.jsonl")
	records, err := TailLines(path, 10, 1<<20)
	if err != nil {
		t.Fatalf("expected no error for a missing file, got %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records for a missing file, got %d", len(records))
	}
}

func TestStat_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.jsonl")
	if _, _, ok := Stat(path); ok {
		t.Fatalf("expected ok=false for a missing file")
	}
}
