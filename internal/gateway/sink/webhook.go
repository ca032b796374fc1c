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

// Package sink holds the external-sink clients: the webhook client (C8)
// and the batch spreadsheet client (C9).
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// WebhookResult is the normalised outcome of a single webhook POST.
type WebhookResult struct {
	OK        bool            `json:"ok"`
	Status    int             `json:"status,omitempty"`
	LatencyMs int64           `json:"latency_ms"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	Raw       string          `json:"-"`
}

// WebhookClient POSTs ingest events to the external webhook sink,
// appending a shared-secret query parameter and enforcing a per-call
// timeout. ok reflects the remote body's top-level ok field, not HTTP status —
// a 200 with {ok:false} is a failure, and a non-200 with {ok:true} would
// count as success, per the upstream endpoint's contract.
type WebhookClient struct {
	url     string
	secret  string
	timeout time.Duration
	client  *http.Client

	// limiter bounds the outbound request rate (20 per second, burst 20)
	// so a sink outage never turns retries into a thundering herd against
	// an already-struggling endpoint; it is independent of the queue
	// worker's own backoff.
	limiter *rate.Limiter
}

// NewWebhookClient builds a client. url/secret may be empty — Post will
// then fail fast with the documented error instead of attempting a call.
func NewWebhookClient(url, secret string, timeout time.Duration) *WebhookClient {
	return &WebhookClient{
		url:     url,
		secret:  secret,
		timeout: timeout,
		client:  &http.Client{},
		limiter: rate.NewLimiter(rate.Limit(20), 20),
	}
}

// Post submits event (already-serialised JSON body) to the webhook.
func (c *WebhookClient) Post(ctx context.Context, eventBody []byte) WebhookResult {
	if c.url == "" || c.secret == "" {
		return WebhookResult{OK: false, Error: "missing_GAS_WEBAPP_URL_or_ITPLAYLAB_SECRET"}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return WebhookResult{OK: false, Error: "gas_timeout"}
	}

	reqURL := fmt.Sprintf("%s?__secret=%s", c.url, url.QueryEscape(c.secret))

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, reqURL, bytes.NewReader(eventBody))
	if err != nil {
		return WebhookResult{OK: false, Error: fmt.Sprintf("build_request: %v", err), LatencyMs: time.Since(start).Milliseconds()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return WebhookResult{OK: false, Error: "gas_timeout", LatencyMs: latency}
		}
		return WebhookResult{OK: false, Error: err.Error(), LatencyMs: latency}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return WebhookResult{OK: false, Status: resp.StatusCode, Error: fmt.Sprintf("read_body: %v", err), LatencyMs: latency}
	}

	var parsed struct {
		OK   bool            `json:"ok"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return WebhookResult{
			OK: false, Status: resp.StatusCode, LatencyMs: latency,
			Error: "invalid_json_from_gas", Raw: string(body),
		}
	}

	return WebhookResult{
		OK:        parsed.OK,
		Status:    resp.StatusCode,
		LatencyMs: latency,
		Data:      parsed.Data,
	}
}
