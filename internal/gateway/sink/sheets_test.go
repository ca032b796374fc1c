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

package sink

import (
	"testing"
	"time"

	"eventgate/internal/gateway/core"
)

func TestSheetsClient_ReadyReportsMissingSheetID(t *testing.T) {
	c := NewSheetsClient("", "Events", "", `{"client_email":"x"}`, time.Second)
	ready, reason := c.Ready()
	if ready {
		t.Fatalf("expected not ready without a sheet id")
	}
	if reason != "missing_SHEET_ID" {
		t.Fatalf("unexpected reason: %q", reason)
	}
}

func TestSheetsClient_ReadyReportsMissingCredential(t *testing.T) {
	c := NewSheetsClient("sheet123", "Events", "", "", time.Second)
	ready, reason := c.Ready()
	if ready {
		t.Fatalf("expected not ready without any credential material")
	}
	if reason != "missing_GOOGLE_SERVICE_ACCOUNT_JSON" {
		t.Fatalf("unexpected reason: %q", reason)
	}
}

func TestSheetsClient_ReadyWhenConfigured(t *testing.T) {
	c := NewSheetsClient("sheet123", "Events", "", `{"client_email":"x"}`, time.Second)
	ready, reason := c.Ready()
	if !ready || reason != "" {
		t.Fatalf("expected ready with no reason, got ready=%v reason=%q", ready, reason)
	}
}

func TestSheetsClient_AppendBatchNoopOnEmpty(t *testing.T) {
	c := NewSheetsClient("sheet123", "Events", "", "", time.Second)
	if err := c.AppendBatch(nil); err != nil {
		t.Fatalf("expected AppendBatch of an empty slice to be a no-op, got %v", err)
	}
}

func TestSheetsClient_AppendBatchFailsWithBadKeyMaterial(t *testing.T) {
	c := NewSheetsClient("sheet123", "Events", "not-base64!!", "", time.Second)
	err := c.AppendBatch([]*core.QueueItem{{ID: "a", PayloadStr: "{}"}})
	if err == nil {
		t.Fatalf("expected AppendBatch to fail when the key material cannot be decoded")
	}
}
