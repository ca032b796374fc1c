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
	"net/http"
	"strconv"
	"time"

	"eventgate/internal/gateway/config"
	"eventgate/internal/gateway/spool"
)

// handleHealth returns a snapshot of the mode machine and every subsystem's
// counters. It is side-effect-free and touches the spool only via Stat.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	cfg := s.deps.Cfg

	resp := map[string]interface{}{
		"ok":      true,
		"mode":    cfg.OpsMode,
		"version": s.deps.BuildVersion,
		"uptime":  time.Since(s.startedAt).String(),
	}

	if s.deps.Dedupe != nil {
		resp["dedupe_size"] = s.deps.Dedupe.Size()
	}
	if s.deps.Ring != nil {
		resp["store_size"] = s.deps.Ring.Len()
	}
	if s.deps.Queue != nil {
		resp["queue"] = map[string]interface{}{
			"length":  s.deps.Queue.Len(),
			"dropped": s.deps.Queue.Dropped(),
			"failed":  s.deps.Queue.Failed(),
		}
	}
	if s.deps.SpoolWriter != nil {
		if size, updatedAt, ok := s.deps.SpoolWriter.Stat(); ok {
			resp["jsonl"] = map[string]interface{}{
				"path":       s.deps.SpoolWriter.Path(),
				"bytes":      size,
				"updated_at": updatedAt,
			}
		}
	}
	if s.deps.States != nil {
		resp["replay"] = s.deps.States.Load()
	}
	WriteJSON(w, http.StatusOK, resp)
}

// handleStoreRecent returns the last 20 summary ring records, or 404 if the
// summary ring is not active (ECHO mode).
func (s *Server) handleStoreRecent(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if s.deps.Ring == nil {
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "store is disabled in ECHO mode")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ok":     true,
		"mode":   s.deps.Cfg.OpsMode,
		"stored": s.deps.Ring.Len(),
		"recent": s.deps.Ring.Tail(20),
	})
}

// handleSyncStatus exposes queue/worker stats, 404 unless OPS_MODE=FULL.
func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if s.deps.Cfg.OpsMode != config.ModeFull || s.deps.Queue == nil {
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "sync is only available in FULL mode")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ok":             true,
		"external_sync":  s.deps.Cfg.ExternalSync,
		"queue_length":   s.deps.Queue.Len(),
		"queue_dropped":  s.deps.Queue.Dropped(),
		"queue_failed":   s.deps.Queue.Failed(),
		"worker_armed":   s.deps.Worker != nil,
	})
}

// handleSyncRun triggers a single queue-worker tick on demand.
func (s *Server) handleSyncRun(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if s.deps.Worker == nil {
		WriteJSON(w, http.StatusOK, map[string]interface{}{"synced": 0, "detail": "Worker disabled"})
		return
	}
	WriteJSON(w, http.StatusOK, s.deps.Worker.TickOnce())
}

// handleFallbackStatus reports the spool file's size and mtime.
func (s *Server) handleFallbackStatus(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	path := s.deps.Cfg.JSONLDir + "/" + s.deps.Cfg.JSONLFile
	size, updatedAt, ok := spool.Stat(path)
	if s.deps.SpoolWriter != nil {
		path = s.deps.SpoolWriter.Path()
		size, updatedAt, ok = s.deps.SpoolWriter.Stat()
	}
	resp := map[string]interface{}{"path": path}
	if ok {
		resp["bytes"] = size
		resp["updated_at"] = updatedAt
	} else {
		resp["bytes"] = 0
	}
	WriteJSON(w, http.StatusOK, resp)
}

// handleFallbackTail returns the last n parsed spool records (default 50,
// clamped to [1,500]), reading at most JSONL_TAIL_MAX_BYTES from the tail.
func (s *Server) handleFallbackTail(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	n := 50
	if v := r.URL.Query().Get("n"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			n = parsed
		}
	}
	if n < 1 {
		n = 1
	}
	if n > 500 {
		n = 500
	}

	cfg := s.deps.Cfg
	path := cfg.JSONLDir + "/" + cfg.JSONLFile
	if s.deps.SpoolWriter != nil {
		path = s.deps.SpoolWriter.Path()
	}

	records, err := spool.TailLines(path, n, cfg.JSONLTailMaxBytes)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "records": records})
}

// handleReplayStatus reports the replay cursor and configuration.
func (s *Server) handleReplayStatus(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	cfg := s.deps.Cfg
	path := cfg.JSONLDir + "/" + cfg.JSONLFile
	if s.deps.SpoolWriter != nil {
		path = s.deps.SpoolWriter.Path()
	}

	resp := map[string]interface{}{
		"replay_enabled": cfg.ReplayEnabled,
		"jsonl":          map[string]interface{}{"path": path},
	}
	if s.deps.States != nil {
		resp["state"] = s.deps.States.Load()
	}
	WriteJSON(w, http.StatusOK, resp)
}

// handleReplayRun triggers a single replay-worker tick on demand.
func (s *Server) handleReplayRun(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if s.deps.ReplayWorker == nil {
		WriteJSON(w, http.StatusOK, map[string]interface{}{"skipped": true, "reason": "replay disabled"})
		return
	}
	WriteJSON(w, http.StatusOK, s.deps.ReplayWorker.TickOnce())
}
