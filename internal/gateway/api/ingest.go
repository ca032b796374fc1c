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

package api

import (
	"encoding/json"
	"net/http"
	"time"

	"eventgate/internal/gateway/core"
	"eventgate/internal/gateway/spool"
	"eventgate/pkg/clock"
)

// ingestRequest is the body of POST /ingest: {source, event_type, payload}.
type ingestRequest struct {
	Source    string          `json:"source"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	start := time.Now()
	cfg := s.deps.Cfg

	var req ingestRequest
	if !DecodeJSON(w, r, cfg.JSONLimitBytes, &req) {
		return
	}
	if req.Source == "" || req.EventType == "" || len(req.Payload) == 0 {
		WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "source, event_type, and payload are required")
		return
	}

	jobID := clock.JobID(s.deps.Clk)
	traceID := r.Header.Get("X-Request-Id")
	if traceID == "" {
		traceID = clock.TraceID()
	}
	receivedAt := clock.ISO8601(s.deps.Clk.Now())

	if s.deps.SpoolWriter != nil && cfg.JSONLAlways {
		rec := spool.Record{
			Ts: receivedAt, Kind: "ingest", Stage: spool.StageAlways,
			JobID: jobID, TraceID: traceID, Source: req.Source, EventType: req.EventType,
			Payload: req.Payload, ReceivedAt: receivedAt,
		}
		if err := s.deps.SpoolWriter.Append(rec); err != nil {
			s.deps.Log.WithCorrelationID(traceID).Error().Err(err).Msg("spool append (jsonl.always) failed")
		}
	}

	body, _ := json.Marshal(req)
	if s.deps.Webhook != nil {
		result := s.deps.Webhook.Post(r.Context(), body)
		core.ObserveWebhookLatency(float64(result.LatencyMs))
		if !result.OK {
			core.RecordWebhookFailure()
		}

		if !result.OK && s.deps.SpoolWriter != nil && cfg.JSONLFallback {
			reason := result.Error
			if reason == "" {
				reason = "webhook_not_ok"
			}
			rec := spool.Record{
				Ts: receivedAt, Kind: "ingest", Stage: spool.StageFallback, Reason: reason,
				JobID: jobID, TraceID: traceID, Source: req.Source, EventType: req.EventType,
				Payload: req.Payload, ReceivedAt: receivedAt,
				IngestLatencyMs: time.Since(start).Milliseconds(),
			}
			if err := s.deps.SpoolWriter.Append(rec); err != nil {
				s.deps.Log.WithCorrelationID(traceID).Error().Err(err).Msg("spool append (jsonl.fallback) failed")
			}
		}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ok":          true,
		"job_id":      jobID,
		"trace_id":    traceID,
		"received_at": receivedAt,
		"latency_ms":  time.Since(start).Milliseconds(),
		"mode":        cfg.OpsMode,
	})
}
