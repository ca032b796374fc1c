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
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"eventgate/internal/gateway/core"
)

const sheetsScope = "https://www.googleapis.com/auth/spreadsheets"

// serviceAccountKey is the subset of a Google service-account JSON key file
// needed to mint a self-signed JWT assertion for the OAuth2 token exchange.
type serviceAccountKey struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// SheetsClient implements core.BatchSink by authenticating with a Google
// service account and issuing batch appends to the events spreadsheet
// (C9). The authenticated HTTP token is constructed lazily on first use
// and cached across calls, so a process running in ECHO or STORE mode
// never needs the credentials material.
type SheetsClient struct {
	sheetID   string
	sheetName string
	keyB64    string
	keyRaw    string
	timeout   time.Duration
	client    *http.Client

	mu          sync.Mutex
	key         *serviceAccountKey
	token       string
	tokenExpiry time.Time
}

// NewSheetsClient builds a client. keyB64/keyRaw may both be empty — Ready
// will then report the missing configuration without ever parsing a key.
func NewSheetsClient(sheetID, sheetName, keyB64, keyRaw string, timeout time.Duration) *SheetsClient {
	return &SheetsClient{
		sheetID:   sheetID,
		sheetName: sheetName,
		keyB64:    keyB64,
		keyRaw:    keyRaw,
		timeout:   timeout,
		client:    &http.Client{},
	}
}

// Ready reports whether SHEET_ID and a service-account credential are
// configured, without attempting authentication.
func (s *SheetsClient) Ready() (bool, string) {
	if s.sheetID == "" {
		return false, "missing_SHEET_ID"
	}
	if s.keyB64 == "" && s.keyRaw == "" {
		return false, "missing_GOOGLE_SERVICE_ACCOUNT_JSON"
	}
	return true, ""
}

// AppendBatch authenticates (lazily, cached) and issues one batch append
// to range "<SHEET_NAME>!A:E" with columns [id, payload_str, received_at,
// "render", ""], raw value input, inserting rows.
func (s *SheetsClient) AppendBatch(items []*core.QueueItem) error {
	if len(items) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	token, err := s.accessToken(ctx)
	if err != nil {
		return fmt.Errorf("sheets auth: %w", err)
	}

	rows := make([][]string, len(items))
	for i, item := range items {
		rows[i] = []string{item.ID, item.PayloadStr, fmt.Sprintf("%d", item.ReceivedAtMs), "render", ""}
	}
	body, err := json.Marshal(map[string]any{"values": rows})
	if err != nil {
		return fmt.Errorf("marshal append request: %w", err)
	}

	rangeParam := url.QueryEscape(fmt.Sprintf("%s!A:E", s.sheetName))
	endpoint := fmt.Sprintf(
		"https://sheets.googleapis.com/v4/spreadsheets/%s/values/%s:append?valueInputOption=RAW&insertDataOption=INSERT_ROWS",
		url.PathEscape(s.sheetID), rangeParam,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build append request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("append batch transport: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("append batch: status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// accessToken returns a cached bearer token, refreshing it if expired.
func (s *SheetsClient) accessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Now().Before(s.tokenExpiry) {
		return s.token, nil
	}

	key, err := s.loadKeyLocked()
	if err != nil {
		return "", err
	}

	assertion, err := mintAssertion(key)
	if err != nil {
		return "", fmt.Errorf("mint jwt assertion: %w", err)
	}

	form := url.Values{}
	form.Set("grant_type", "urn:ietf:params:oauth:grant-type:jwt-bearer")
	form.Set("assertion", assertion)

	tokenURI := key.TokenURI
	if tokenURI == "" {
		tokenURI = "https://oauth2.googleapis.com/token"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURI, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange transport: %w", err)
	}
	defer resp.Body.Close()

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("token exchange: empty access_token (status %d)", resp.StatusCode)
	}

	s.token = tokenResp.AccessToken
	s.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - 30*time.Second)
	return s.token, nil
}

func (s *SheetsClient) loadKeyLocked() (*serviceAccountKey, error) {
	if s.key != nil {
		return s.key, nil
	}

	raw := s.keyRaw
	if raw == "" {
		decoded, err := base64.StdEncoding.DecodeString(s.keyB64)
		if err != nil {
			return nil, fmt.Errorf("decode GOOGLE_SERVICE_ACCOUNT_JSON_B64: %w", err)
		}
		raw = string(decoded)
	}

	var key serviceAccountKey
	if err := json.Unmarshal([]byte(raw), &key); err != nil {
		return nil, fmt.Errorf("parse service account json: %w", err)
	}
	s.key = &key
	return s.key, nil
}

// mintAssertion builds and signs (RS256) the self-signed JWT Google's
// token endpoint exchanges for a bearer access token.
func mintAssertion(key *serviceAccountKey) (string, error) {
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(key.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("parse private key: %w", err)
	}

	now := time.Now()
	tokenURI := key.TokenURI
	if tokenURI == "" {
		tokenURI = "https://oauth2.googleapis.com/token"
	}
	claims := jwt.MapClaims{
		"iss":   key.ClientEmail,
		"scope": sheetsScope,
		"aud":   tokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(privateKey)
}
