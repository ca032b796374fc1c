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

// This file implements the background queue worker (C10): a periodic,
// single-flight batcher driving the Forward Queue into the Batch Sink.
package core

import (
	"sync"
	"sync/atomic"
	"time"
)

// BatchSink is the minimal surface the queue worker needs from the external
// sink (the Google Sheets batch-append client in production).
type BatchSink interface {
	// Ready reports whether the sink's required configuration is present.
	// If not ready, reason explains what's missing.
	Ready() (ready bool, reason string)
	// AppendBatch persists items; callers retry/backoff on error.
	AppendBatch(items []*QueueItem) error
}

// TickResult summarizes the outcome of a single worker tick. The periodic
// loop discards it; the manual /sync/run trigger returns it as JSON.
type TickResult struct {
	Synced int    `json:"synced"`
	Reason string `json:"reason,omitempty"`
	Error  string `json:"error,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Worker runs the periodic queue-to-sink batcher (C10).
type Worker struct {
	queue    *ForwardQueue
	sink     BatchSink
	interval time.Duration
	batch    int

	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  uint32
	busy     atomic.Bool

	nowMs func() int64
}

// NewWorker creates a queue worker. nowMs may be nil to use wall time.
func NewWorker(queue *ForwardQueue, sink BatchSink, interval time.Duration, batch int, nowMs func() int64) *Worker {
	if nowMs == nil {
		nowMs = func() int64 { return time.Now().UnixMilli() }
	}
	return &Worker{
		queue:    queue,
		sink:     sink,
		interval: interval,
		batch:    batch,
		stopChan: make(chan struct{}),
		nowMs:    nowMs,
	}
}

// Start launches the periodic tick loop in a background goroutine. The
// worker is only ever started by main when OPS_MODE=FULL and
// EXTERNAL_SYNC=ON (the Mode Machine's job, not this type's).
func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.TickOnce()
			case <-w.stopChan:
				return
			}
		}
	}()
}

// Stop signals the loop to exit and waits for any in-flight tick to finish.
func (w *Worker) Stop() {
	if !atomic.CompareAndSwapUint32(&w.stopped, 0, 1) {
		return
	}
	close(w.stopChan)
	w.wg.Wait()
}

// TickOnce runs a single tick, shared by the periodic loop and the manual
// /sync/run trigger. At most one tick runs at a time; a reentrant call
// returns immediately with reason "worker_busy".
func (w *Worker) TickOnce() TickResult {
	if !w.busy.CompareAndSwap(false, true) {
		return TickResult{Reason: "worker_busy"}
	}
	defer w.busy.Store(false)

	if ready, reason := w.sink.Ready(); !ready {
		return TickResult{Synced: 0, Reason: reason}
	}

	now := w.nowMs()
	candidates := w.queue.Candidates(now, w.batch)
	if len(candidates) == 0 {
		return TickResult{Synced: 0}
	}

	if err := w.sink.AppendBatch(candidates); err != nil {
		w.queue.DeferDue(now, w.batch, err.Error())
		RecordQueueFailed(w.queue.Failed())
		return TickResult{Synced: 0, Error: "sync_failed", Detail: err.Error()}
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	w.queue.RemoveAll(ids)
	RecordQueueSynced(len(ids))
	SetQueueDepth(w.queue.Len())
	return TickResult{Synced: len(ids)}
}
