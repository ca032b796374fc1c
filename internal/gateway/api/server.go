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

// Package api implements the ingest controller (C12): the HTTP surface
// described in the gateway's operations contract, wired to the core
// components (dedup window, summary ring, forward queue), the spool, and
// the background workers.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"eventgate/internal/gateway/config"
	"eventgate/internal/gateway/core"
	"eventgate/internal/gateway/logging"
	"eventgate/internal/gateway/replay"
	"eventgate/internal/gateway/sink"
	"eventgate/internal/gateway/spool"
	"eventgate/pkg/clock"
)

// Deps bundles every component the ingest controller may call into. Fields
// left nil reflect a mode/config combination where that subsystem is not
// armed (see config.Config's Mode Machine accessors); handlers check for
// nil rather than assuming presence.
type Deps struct {
	Cfg *config.Config
	Log *logging.Logger
	Clk clock.Clock

	Dedupe *core.DuplicateWindow
	Ring   *core.SummaryRing
	Queue  *core.ForwardQueue
	Worker *core.Worker

	SpoolWriter  *spool.Writer
	States       *spool.StateStore
	ReplayWorker *replay.Worker

	Webhook *sink.WebhookClient

	BuildVersion string
}

// Server owns the HTTP handler and the http.Server wrapping it.
type Server struct {
	deps      Deps
	server    *http.Server
	startedAt time.Time
	received  atomic.Int64
}

// NewServer builds the ingest controller's HTTP server bound to the
// configured port (deps.Cfg.Port).
func NewServer(deps Deps) *Server {
	s := &Server{deps: deps, startedAt: time.Now()}

	mux := http.NewServeMux()
	s.registerRoutes(mux)
	handler := applyMiddleware(mux, deps.Log)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", deps.Cfg.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler exposes the wrapped handler for tests (httptest.NewServer/NewRequest).
func (s *Server) Handler() http.Handler { return s.server.Handler }

// Start runs the HTTP server, blocking until it stops.
func (s *Server) Start() error {
	s.deps.Log.Info().Str("addr", s.server.Addr).Msg("starting ingest controller")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/ingest", s.handleIngest)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/store/recent", s.handleStoreRecent)
	mux.HandleFunc("/sync/status", s.handleSyncStatus)
	mux.HandleFunc("/sync/run", s.handleSyncRun)
	mux.HandleFunc("/fallback/status", s.handleFallbackStatus)
	mux.HandleFunc("/fallback/tail", s.handleFallbackTail)
	mux.HandleFunc("/replay/status", s.handleReplayStatus)
	mux.HandleFunc("/replay/run", s.handleReplayRun)
	mux.HandleFunc("/metrics", core.MetricsHandler().ServeHTTP)
	mux.HandleFunc("/", s.handleNotFound)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusNotFound, "NOT_FOUND", "")
}
