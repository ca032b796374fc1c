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

// Package replay implements the background replay worker (C11): it reads
// spooled JSONL records starting at the persisted offset and resubmits
// them to the webhook sink, advancing the offset only when an entire
// tick's candidates were delivered.
package replay

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"eventgate/internal/gateway/config"
	"eventgate/internal/gateway/core"
	"eventgate/internal/gateway/sink"
	"eventgate/internal/gateway/spool"
	"eventgate/pkg/clock"
)

// Sender is the minimal webhook surface the replay worker needs.
type Sender interface {
	Post(ctx context.Context, body []byte) sink.WebhookResult
}

// TickResult summarizes one replay tick, shared by the periodic loop and
// the manual /replay/run trigger.
type TickResult struct {
	Skipped bool   `json:"skipped,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Sent    int    `json:"sent"`
	Failed  int    `json:"failed"`
	Offset  int64  `json:"offset"`
}

// Worker drives the periodic replay tick.
type Worker struct {
	spoolPath string
	states    *spool.StateStore
	sender    Sender
	mode      config.ReplayMode
	interval  time.Duration
	batch     int
	maxBytes  int64
	clk       clock.Clock

	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  uint32
	busy     atomic.Bool
}

// NewWorker builds a replay worker. clk may be nil to use wall time.
func NewWorker(spoolPath string, states *spool.StateStore, sender Sender, mode config.ReplayMode, interval time.Duration, batch int, maxBytes int64, clk clock.Clock) *Worker {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Worker{
		spoolPath: spoolPath,
		states:    states,
		sender:    sender,
		mode:      mode,
		interval:  interval,
		batch:     batch,
		maxBytes:  maxBytes,
		clk:       clk,
		stopChan:  make(chan struct{}),
	}
}

// Start launches the periodic tick loop. Only invoked by main when
// REPLAY_ENABLED=ON and OPS_MODE=FULL (the Mode Machine's decision).
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

// Stop signals the loop to exit and waits for any in-flight tick.
func (w *Worker) Stop() {
	if !atomic.CompareAndSwapUint32(&w.stopped, 0, 1) {
		return
	}
	close(w.stopChan)
	w.wg.Wait()
}

// TickOnce runs a single replay tick. At most one tick runs at a time; a
// reentrant call returns immediately with reason "replay_busy".
func (w *Worker) TickOnce() TickResult {
	if !w.busy.CompareAndSwap(false, true) {
		return TickResult{Skipped: true, Reason: "replay_busy"}
	}
	defer w.busy.Store(false)

	if _, _, ok := spool.Stat(w.spoolPath); !ok {
		return TickResult{Skipped: true, Reason: "no_jsonl_file"}
	}

	state := w.states.Load()

	result, err := spool.ReadFrom(w.spoolPath, state.Offset, w.maxBytes)
	if err != nil {
		errMsg := err.Error()
		state.LastError = &errMsg
		_ = w.states.Save(state)
		core.RecordReplayFailure()
		core.SetReplayOffset(state.Offset)
		return TickResult{Sent: 0, Failed: 0, Offset: state.Offset, Reason: "read_error"}
	}

	candidates := filterByMode(result.Records, w.mode)
	if len(candidates) > w.batch {
		candidates = candidates[:w.batch]
	}

	if len(candidates) == 0 {
		state.Offset = result.NewOffset
		state.LastError = nil
		_ = w.states.Save(state)
		core.SetReplayOffset(state.Offset)
		return TickResult{Sent: 0, Offset: state.Offset}
	}

	sent := 0
	for _, rec := range candidates {
		body, marshalErr := json.Marshal(reshapeForReplay(rec, w.clk))
		if marshalErr != nil {
			errMsg := marshalErr.Error()
			state.Failed++
			state.LastError = &errMsg
			_ = w.states.Save(state)
			core.RecordReplaySent(sent)
			core.RecordReplayFailure()
			core.SetReplayOffset(state.Offset)
			return TickResult{Sent: sent, Failed: int(state.Failed), Offset: state.Offset, Reason: "marshal_error"}
		}

		res := w.sender.Post(context.Background(), body)
		if !res.OK {
			errMsg := res.Error
			if errMsg == "" {
				errMsg = "replay_send_failed"
			}
			state.Failed++
			state.LastError = &errMsg
			_ = w.states.Save(state)
			core.RecordReplaySent(sent)
			core.RecordReplayFailure()
			core.SetReplayOffset(state.Offset)
			return TickResult{Sent: sent, Failed: int(state.Failed), Offset: state.Offset, Reason: errMsg}
		}
		sent++
	}

	state.Offset = result.NewOffset
	state.Sent += int64(sent)
	state.LastError = nil
	_ = w.states.Save(state)
	core.RecordReplaySent(sent)
	core.SetReplayOffset(state.Offset)
	return TickResult{Sent: sent, Offset: state.Offset}
}

// filterByMode keeps jsonl.fallback records only (FALLBACK_ONLY) or both
// fallback and always records (ALL).
func filterByMode(records []spool.Record, mode config.ReplayMode) []spool.Record {
	out := make([]spool.Record, 0, len(records))
	for _, rec := range records {
		switch mode {
		case config.ReplayAll:
			out = append(out, rec)
		default: // FALLBACK_ONLY
			if rec.Stage == spool.StageFallback {
				out = append(out, rec)
			}
		}
	}
	return out
}

// replayEnvelope is a spool.Record with an added replayed_at stamp, the
// shape the webhook sink receives for a replayed record.
type replayEnvelope struct {
	spool.Record
	ReplayedAt string `json:"replayed_at"`
}

func reshapeForReplay(rec spool.Record, clk clock.Clock) replayEnvelope {
	return replayEnvelope{Record: rec, ReplayedAt: clock.ISO8601(clk.Now())}
}
