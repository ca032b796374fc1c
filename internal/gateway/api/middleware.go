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
	"fmt"
	"net/http"
	"time"

	"eventgate/internal/gateway/logging"
	"eventgate/pkg/clock"
)

// responseWriter wraps http.ResponseWriter to capture the status code for
// the access log line.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// recoveryMiddleware turns a panic in any handler into a 500 INTERNAL_ERROR
// instead of killing the connection; only a bug in request validation or
// response assembly itself should ever reach here (§7).
func recoveryMiddleware(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error().Str("panic", fmt.Sprintf("%v", rec)).Str("path", r.URL.Path).Msg("panic recovered in handler")
					WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// correlationIDMiddleware resolves the trace id for the request (X-Request-Id
// if present, else a fresh uuid) and echoes it back on the response.
func correlationIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Request-Id")
		if traceID == "" {
			traceID = clock.TraceID()
		}
		w.Header().Set("X-Trace-Id", traceID)
		r = r.WithContext(withTraceID(r.Context(), traceID))
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs one line per request: method, path, status, and
// duration, tagged with the resolved trace id.
func loggingMiddleware(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			dur := time.Since(start)
			log := logger.WithCorrelationID(traceIDFromContext(r.Context()))
			event := log.Info()
			if rw.statusCode >= 500 {
				event = log.Error()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rw.statusCode).
				Dur("duration", dur).
				Msg("http request")
		})
	}
}

// applyMiddleware wraps handler with the gateway's middleware stack, applied
// in reverse order (last applied runs first).
func applyMiddleware(handler http.Handler, logger *logging.Logger) http.Handler {
	handler = loggingMiddleware(logger)(handler)
	handler = correlationIDMiddleware(handler)
	handler = recoveryMiddleware(logger)(handler)
	return handler
}
