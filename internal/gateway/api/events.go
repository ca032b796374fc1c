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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"eventgate/internal/gateway/config"
	"eventgate/internal/gateway/core"
	"eventgate/pkg/clock"
)

// eventIn is one element of the standard /events request shape.
type eventIn struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	Source     string          `json:"source"`
	UserID     string          `json:"user_id"`
	OccurredAt string          `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// eventsRequest covers both the standard and legacy-TSV shapes; only one of
// Events or (Action+Lines) will be populated by a well-formed caller.
type eventsRequest struct {
	Events []eventIn `json:"events"`

	Action string   `json:"action"`
	Lines  []string `json:"lines"`

	Source string `json:"source"`
	UserID string `json:"user_id"`
}

// packedPayload is the canonical shape stored for an accumulated event row:
// {v, event_type, occurred_at, meta:{source,user_id,ip,ua}, data, raw}.
type packedPayload struct {
	V          int             `json:"v"`
	EventType  string          `json:"event_type"`
	OccurredAt string          `json:"occurred_at"`
	Meta       packedMeta      `json:"meta"`
	Data       json.RawMessage `json:"data"`
	Raw        string          `json:"raw"`
}

type packedMeta struct {
	Source string `json:"source"`
	UserID string `json:"user_id"`
	IP     string `json:"ip"`
	UA     string `json:"ua"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	start := time.Now()
	cfg := s.deps.Cfg

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, cfg.JSONLimitBytes))
	if err != nil {
		WriteError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", err.Error())
		return
	}

	var req eventsRequest
	if err := json.Unmarshal(body, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	var rows []packedPayload
	var fingerprints []string
	received := 0

	switch {
	case req.Action == "append_events_tsv":
		source := firstNonEmpty(req.Source, "legacy")
		userID := firstNonEmpty(req.UserID, "anonymous")
		for _, line := range req.Lines {
			received++
			id, payload := splitTSVLine(line)
			var data json.RawMessage
			if json.Valid(payload) {
				data = json.RawMessage(payload)
			} else {
				raw, _ := json.Marshal(map[string]string{"raw_line": line})
				data = raw
			}
			rows = append(rows, packedPayload{
				V: 1, EventType: "legacy.tsv", OccurredAt: clock.ISO8601(s.deps.Clk.Now()),
				Meta: packedMeta{Source: source, UserID: userID, IP: clientIP(r), UA: r.UserAgent()},
				Data: data, Raw: line,
			})
			fingerprints = append(fingerprints, id)
		}

	case req.Events != nil:
		for _, e := range req.Events {
			received++
			source := firstNonEmpty(e.Source, req.Source, "unknown")
			userID := firstNonEmpty(e.UserID, req.UserID, "anonymous")
			eventType := firstNonEmpty(e.EventType, "unknown")
			eventID := e.EventID
			if eventID == "" {
				eventID = clock.EventID(s.deps.Clk, source, userID)
			}
			occurredAt := e.OccurredAt
			if occurredAt == "" {
				occurredAt = clock.ISO8601(s.deps.Clk.Now())
			}
			raw, _ := json.Marshal(e)
			rows = append(rows, packedPayload{
				V: 1, EventType: eventType, OccurredAt: occurredAt,
				Meta: packedMeta{Source: source, UserID: userID, IP: clientIP(r), UA: r.UserAgent()},
				Data: e.Payload, Raw: string(raw),
			})
			fingerprints = append(fingerprints, canonicalFingerprint(eventID, eventType, e.Payload))
		}

	default:
		WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "body must be {events:[...]} or a legacy TSV append")
		return
	}

	droppedDuplicates := 0
	accumulated := rows
	if s.deps.Dedupe != nil {
		now := clock.NowMs(s.deps.Clk)
		filtered := make([]packedPayload, 0, len(rows))
		for i, row := range rows {
			if s.deps.Dedupe.CheckAndRecord(fingerprints[i], now) {
				droppedDuplicates++
				continue
			}
			filtered = append(filtered, row)
		}
		accumulated = filtered
	}
	appended := len(accumulated)

	core.RecordEventsReceived("/events", received)
	core.RecordDuplicatesDropped(droppedDuplicates)

	mode := cfg.OpsMode
	var queueLength *int
	stored := 0

	if mode != config.ModeEcho {
		wasDuplicate := received > 0 && appended == 0
		if s.deps.Ring != nil {
			s.deps.Ring.Push(core.SummaryRecord{
				TsMs:        clock.NowMs(s.deps.Clk),
				Fingerprint: firstFingerprint(fingerprints),
				Bytes:       len(body),
				Duplicate:   wasDuplicate,
			})
			stored = s.deps.Ring.Len()
			core.SetSummaryRingSize(stored)
		}

		if mode == config.ModeFull && s.deps.Queue != nil && appended > 0 {
			s.deps.Queue.Enqueue(&core.QueueItem{
				ID:           clock.JobID(s.deps.Clk),
				Fingerprint:  firstFingerprint(fingerprints),
				Bytes:        len(body),
				ReceivedAtMs: clock.NowMs(s.deps.Clk),
				PayloadStr:   string(body),
			})
			core.RecordQueueDropped(s.deps.Queue.Dropped())
			core.SetQueueDepth(s.deps.Queue.Len())
			n := s.deps.Queue.Len()
			queueLength = &n
		}
	}

	resp := map[string]interface{}{
		"ok":                 true,
		"received":           received,
		"appended":           appended,
		"dropped_duplicates": droppedDuplicates,
		"latency_ms":         time.Since(start).Milliseconds(),
		"mode":               mode,
		"bytes":              len(body),
		"stored":             stored,
		"duplicate":          received > 0 && appended == 0,
		"external":           cfg.ExternalSync,
	}
	if queueLength != nil {
		resp["queue_length"] = *queueLength
	}
	WriteJSON(w, http.StatusOK, resp)
}

func firstFingerprint(fps []string) string {
	if len(fps) == 0 {
		return ""
	}
	return fps[0]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// splitTSVLine splits a legacy TSV line on the first tab into (id, payload).
func splitTSVLine(line string) (string, []byte) {
	idx := strings.IndexByte(line, '\t')
	if idx < 0 {
		return line, nil
	}
	return line[:idx], []byte(line[idx+1:])
}

// canonicalFingerprint hashes a stable re-encoding of an event's identity
// fields so that two requests carrying the same event produce the same
// fingerprint regardless of incidental JSON key ordering.
func canonicalFingerprint(eventID, eventType string, payload json.RawMessage) string {
	// Round-trip the payload through interface{} so nested object keys come
	// out alphabetically sorted (encoding/json always sorts map keys on
	// marshal) instead of preserving whatever order the caller sent.
	var normalizedPayload interface{}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &normalizedPayload); err != nil {
			normalizedPayload = string(payload)
		}
	}
	canon := map[string]interface{}{
		"event_id":   eventID,
		"event_type": eventType,
		"payload":    normalizedPayload,
	}
	data, _ := json.Marshal(canon)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
