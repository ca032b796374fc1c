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
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventgate/internal/gateway/config"
	"eventgate/internal/gateway/core"
	"eventgate/internal/gateway/logging"
)

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

func newTestServer(t *testing.T, mutate func(cfg *config.Config, deps *Deps)) (*Server, *config.Config) {
	t.Helper()
	cfg := config.Default()
	cfg.Port = 0
	deps := Deps{
		Cfg: cfg,
		Log: logging.NewSilent(),
		Clk: fixedClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	if mutate != nil {
		mutate(cfg, &deps)
	}
	return NewServer(deps), cfg
}

func TestHandleEvents_RejectsNonPOST(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleEvents_RejectsMalformedJSON(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleEvents_StandardShapeAccumulatesRows(t *testing.T) {
	srv, _ := newTestServer(t, func(cfg *config.Config, deps *Deps) {
		deps.Dedupe = core.NewDuplicateWindow(cfg.DedupeWindowMs)
		deps.Ring = core.NewSummaryRing(cfg.StoreLimit)
	})

	body := `{"events":[{"event_id":"e1","event_type":"click","payload":{"x":1}}]}`
	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["ok"])
	assert.EqualValues(t, 1, resp["received"])
	assert.EqualValues(t, 1, resp["appended"])
	assert.EqualValues(t, 1, resp["stored"])
}

func TestHandleEvents_DuplicateEventIsDropped(t *testing.T) {
	srv, _ := newTestServer(t, func(cfg *config.Config, deps *Deps) {
		deps.Dedupe = core.NewDuplicateWindow(cfg.DedupeWindowMs)
		deps.Ring = core.NewSummaryRing(cfg.StoreLimit)
	})

	body := `{"events":[{"event_id":"e1","event_type":"click","payload":{"x":1}}]}`

	req1 := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body))
	rec1 := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec1, req1)
	require.Equal(t, http.StatusOK, rec1.Code)

	req2 := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body))
	rec2 := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec2, req2)
	require.Equal(t, http.StatusOK, rec2.Code)

	var resp2 map[string]interface{}
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &resp2))
	assert.EqualValues(t, 1, resp2["received"])
	assert.EqualValues(t, 0, resp2["appended"])
	assert.EqualValues(t, 1, resp2["dropped_duplicates"])
	assert.Equal(t, true, resp2["duplicate"])
}

func TestHandleEvents_LegacyTSVShape(t *testing.T) {
	srv, _ := newTestServer(t, func(cfg *config.Config, deps *Deps) {
		deps.Dedupe = core.NewDuplicateWindow(cfg.DedupeWindowMs)
		deps.Ring = core.NewSummaryRing(cfg.StoreLimit)
	})

	body := `{"action":"append_events_tsv","lines":["id1\t{\"a\":1}","id2\t{\"b\":2}"]}`
	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 2, resp["received"])
	assert.EqualValues(t, 2, resp["appended"])
}

func TestHandleEvents_EchoModeSkipsRingAndQueue(t *testing.T) {
	srv, _ := newTestServer(t, func(cfg *config.Config, deps *Deps) {
		cfg.OpsMode = config.ModeEcho
		// No Dedupe/Ring/Queue wired, mirroring how main.go arms ECHO mode.
	})

	body := `{"events":[{"event_id":"e1","event_type":"click","payload":{"x":1}}]}`
	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 0, resp["stored"])
	assert.NotContains(t, resp, "queue_length")
}

func TestHandleEvents_FullModeEnqueuesOncePerRequest(t *testing.T) {
	srv, _ := newTestServer(t, func(cfg *config.Config, deps *Deps) {
		cfg.OpsMode = config.ModeFull
		cfg.ExternalSync = true
		deps.Dedupe = core.NewDuplicateWindow(cfg.DedupeWindowMs)
		deps.Ring = core.NewSummaryRing(cfg.StoreLimit)
		deps.Queue = core.NewForwardQueue(cfg.QueueLimit, cfg.WorkerMaxRetry, cfg.WorkerBackoffBase)
	})

	body := `{"events":[{"event_id":"e1","event_type":"a","payload":{}},{"event_id":"e2","event_type":"b","payload":{}}]}`
	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	// One queue item per request regardless of how many events it carried.
	assert.EqualValues(t, 1, resp["queue_length"])
}

func TestCanonicalFingerprint_StableAcrossKeyOrder(t *testing.T) {
	a := canonicalFingerprint("e1", "click", json.RawMessage(`{"a":1,"b":2}`))
	b := canonicalFingerprint("e1", "click", json.RawMessage(`{"b":2,"a":1}`))
	assert.Equal(t, a, b, "fingerprint must not depend on incidental JSON key order")
}

func TestSplitTSVLine(t *testing.T) {
	id, payload := splitTSVLine("id1\t{\"a\":1}")
	assert.Equal(t, "id1", id)
	assert.Equal(t, `{"a":1}`, string(payload))
}

func TestSplitTSVLine_NoTab(t *testing.T) {
	id, payload := splitTSVLine("no-tab-here")
	assert.Equal(t, "no-tab-here", id)
	assert.Nil(t, payload)
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "b", "c"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}
