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
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"eventgate/pkg/clock"
)

// Writer is a serialised, single-writer append log for JSONL records (C5).
// Appends never overlap: a new write never begins until the previous one's
// write completes. Before each append, if the active file has reached
// maxBytes, it is rotated (renamed to <path>.<iso>.bak) and a fresh file is
// started.
type Writer struct {
	mu        sync.Mutex
	path      string
	maxBytes  int64
	f         *os.File
	w         *bufio.Writer
	size      int64
	clk       clock.Clock
}

// NewWriter opens (or creates) path in append mode, creating parent
// directories as needed.
func NewWriter(path string, maxBytes int64, clk clock.Clock) (*Writer, error) {
	if clk == nil {
		clk = clock.Real{}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create spool directory: %w", err)
	}
	w := &Writer{path: path, maxBytes: maxBytes, clk: clk}
	if err := w.openLocked(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) openLocked() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open spool file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat spool file: %w", err)
	}
	w.f = f
	w.w = bufio.NewWriter(f)
	w.size = info.Size()
	return nil
}

// Append serialises record to a single line and writes it. Writes are
// strictly serialised by mu. Errors are returned to the caller — the
// ingest handler is responsible for not letting a spool failure abort the
// request.
func (w *Writer) Append(record Record) error {
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal spool record: %w", err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.size >= w.maxBytes {
		if err := w.rotateLocked(); err != nil {
			return err
		}
	}

	n, err := w.w.Write(line)
	if err != nil {
		return fmt.Errorf("append spool record: %w", err)
	}
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("flush spool record: %w", err)
	}
	w.size += int64(n)
	return nil
}

// rotateLocked renames the active file to <path>.<iso-timestamp>.bak
// (colons replaced) and starts a fresh file. Caller holds mu.
func (w *Writer) rotateLocked() error {
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("flush before rotate: %w", err)
	}
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("close before rotate: %w", err)
	}
	backup := fmt.Sprintf("%s.%s.bak", w.path, clock.RotationSuffix(w.clk.Now()))
	if err := os.Rename(w.path, backup); err != nil {
		return fmt.Errorf("rotate spool file: %w", err)
	}
	return w.openLocked()
}

// Flush writes any buffered data to the file (it does not fsync). Call
// before process shutdown.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w.Flush()
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.f.Close()
}

// Path returns the active spool file path (diagnostics).
func (w *Writer) Path() string { return w.path }

// Stat returns the active file's size and mtime, or ok=false if missing.
func (w *Writer) Stat() (size int64, updatedAt time.Time, ok bool) {
	info, err := os.Stat(w.path)
	if err != nil {
		return 0, time.Time{}, false
	}
	return info.Size(), info.ModTime(), true
}
