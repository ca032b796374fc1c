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

// Package spool implements the durable JSONL fallback log (C5 writer, C6
// reader) and the persisted replay cursor (C7).
package spool

import "encoding/json"

// Stage identifies why a spool line was written.
type Stage string

const (
	StageAlways   Stage = "jsonl.always"
	StageFallback Stage = "jsonl.fallback"
)

// Record is one JSONL line: {ts, kind, stage, reason?, job_id, trace_id,
// source, event_type, payload, received_at, ingest_latency_ms}. Once
// written, a Record is never rewritten, only appended.
type Record struct {
	Ts               string          `json:"ts"`
	Kind             string          `json:"kind"`
	Stage            Stage           `json:"stage"`
	Reason           string          `json:"reason,omitempty"`
	JobID            string          `json:"job_id"`
	TraceID          string          `json:"trace_id"`
	Source           string          `json:"source"`
	EventType        string          `json:"event_type"`
	Payload          json.RawMessage `json:"payload"`
	ReceivedAt       string          `json:"received_at"`
	IngestLatencyMs  int64           `json:"ingest_latency_ms"`
}
