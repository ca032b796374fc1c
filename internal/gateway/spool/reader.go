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
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Stat reports the spool file's size and mtime, or ok=false if missing.
// Used by the replay worker to decide whether there is anything to read
// without opening the file twice.
func Stat(path string) (size int64, updatedAt time.Time, ok bool) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, time.Time{}, false
	}
	return info.Size(), info.ModTime(), true
}

// ReadResult is the outcome of a bounded, line-aligned read from offset.
type ReadResult struct {
	Records   []Record
	NewOffset int64
	EOF       bool
}

// ReadFrom reads min(maxBytes, filesize-offset) bytes starting at offset,
// finds the last newline in that buffer, and parses each complete line as
// JSON (silently skipping malformed lines). NewOffset is offset plus the
// bytes up to and including the last newline, so a trailing incomplete
// line is re-read on the next call. If offset >= filesize, returns empty
// with EOF=true.
func ReadFrom(path string, offset, maxBytes int64) (ReadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ReadResult{NewOffset: offset, EOF: true}, nil
		}
		return ReadResult{}, fmt.Errorf("open spool file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return ReadResult{}, fmt.Errorf("stat spool file: %w", err)
	}
	size := info.Size()
	if offset >= size {
		return ReadResult{NewOffset: offset, EOF: true}, nil
	}

	toRead := size - offset
	if toRead > maxBytes {
		toRead = maxBytes
	}
	buf := make([]byte, toRead)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return ReadResult{}, fmt.Errorf("read spool file: %w", err)
	}

	lastNL := bytes.LastIndexByte(buf, '\n')
	if lastNL < 0 {
		// No complete line in this window; nothing to return, offset unchanged.
		return ReadResult{NewOffset: offset, EOF: offset+toRead >= size}, nil
	}

	complete := buf[:lastNL+1]
	newOffset := offset + int64(lastNL+1)

	var records []Record
	for _, line := range bytes.Split(complete, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue // malformed lines are silently skipped
		}
		records = append(records, rec)
	}

	return ReadResult{
		Records:   records,
		NewOffset: newOffset,
		EOF:       newOffset >= size,
	}, nil
}

// TailLines reads at most maxBytes from the end of path and returns the
// last n parsed records (used by GET /fallback/tail).
func TailLines(path string, n int, maxBytes int64) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open spool file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat spool file: %w", err)
	}
	size := info.Size()
	start := size - maxBytes
	if start < 0 {
		start = 0
	}
	buf := make([]byte, size-start)
	if _, err := f.ReadAt(buf, start); err != nil {
		return nil, fmt.Errorf("read spool file tail: %w", err)
	}

	lines := bytes.Split(buf, []byte("\n"))
	var records []Record
	for _, line := range lines {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}

	if len(records) > n {
		records = records[len(records)-n:]
	}
	return records, nil
}
