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

// Package clock centralizes the gateway's notion of "now" and its id
// generation so that tests can substitute a fake clock instead of sleeping
// on wall time.
package clock

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time so components can be driven by a fake clock in tests.
type Clock interface {
	Now() time.Time
}

// Real is the production Clock, backed by time.Now.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// NowMs returns the current time as epoch milliseconds.
func NowMs(c Clock) int64 { return c.Now().UnixMilli() }

// ISO8601 formats t the way spool records and replay state timestamps do.
func ISO8601(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

// EventID synthesizes an event id when the client didn't supply one:
// evt_<source>_<user>_<ms-epoch>_<4-hex>.
func EventID(c Clock, source, user string) string {
	return fmt.Sprintf("evt_%s_%s_%d_%s", source, user, NowMs(c), randHex(2))
}

// JobID mints a job id for /ingest: job_<UTC-iso-compacted>_<6-hex>.
func JobID(c Clock) string {
	compact := c.Now().UTC().Format("20060102T150405.000000000Z")
	return fmt.Sprintf("job_%s_%s", compact, randHex(3))
}

// TraceID mints a fresh trace id when the caller didn't supply X-Request-Id.
func TraceID() string { return uuid.NewString() }

// RotationSuffix formats t for spool rotation filenames: colons are not
// filesystem-safe on every target, so they are replaced with '-'.
func RotationSuffix(t time.Time) string {
	s := t.UTC().Format(time.RFC3339Nano)
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			out = append(out, '-')
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}

func randHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
