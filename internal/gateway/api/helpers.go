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
	"errors"
	"net/http"
	"strings"
)

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the gateway's stable error envelope: {ok:false, error, detail?}.
func WriteError(w http.ResponseWriter, statusCode int, code, detail string) {
	body := map[string]interface{}{"ok": false, "error": code}
	if detail != "" {
		body["detail"] = detail
	}
	WriteJSON(w, statusCode, body)
}

// RequireMethod writes 404 NOT_FOUND (the gateway never exposes 405 — an
// unmatched method on a known path is treated the same as an unknown path)
// and returns false if r.Method isn't in methods.
func RequireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	WriteError(w, http.StatusNotFound, "NOT_FOUND", "")
	return false
}

// DecodeJSON reads the request body bounded by limitBytes and decodes it
// into v. It distinguishes a too-large body (413) from a malformed one
// (400) so handlers can respond with the right error code.
func DecodeJSON(w http.ResponseWriter, r *http.Request, limitBytes int64, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limitBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			WriteError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", err.Error())
			return false
		}
		WriteError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return false
	}
	return true
}

// clientIP resolves the caller's address: the first comma-split token of
// X-Forwarded-For if present, else the socket peer address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.SplitN(xff, ",", 2)
		return strings.TrimSpace(parts[0])
	}
	return r.RemoteAddr
}
