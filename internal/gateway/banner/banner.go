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

// Package banner prints the gateway's startup and shutdown banners.
package banner

import (
	"fmt"
	"os"
	"strings"

	bannerlib "github.com/ternarybob/banner"

	"eventgate/internal/gateway/config"
	"eventgate/internal/gateway/logging"
)

// Print displays the startup banner to stderr and logs a structured
// equivalent for log aggregation.
func Print(version string, cfg *config.Config, logger *logging.Logger) {
	lineColor := bannerlib.ColorCyan
	textColor := bannerlib.ColorBold + bannerlib.ColorWhite
	width := 60
	hr := lineColor + strings.Repeat("═", width) + bannerlib.ColorReset

	art := []string{
		` 888888888  888       888  .d8888b.  888888888`,
		`     888    888       888 d88P  Y88b     888`,
		`     888    888       888 888            888`,
		`     888    Y88b     d88P 888  88888      888`,
		`     888     Y88b   d88P  888    888      888`,
		`     888      Y88b d88P   888    888      888`,
		`     888       Y888P      Y88b  d88P      888`,
		`     888        Y8P        Y8888P88       888`,
	}

	fmt.Fprintf(os.Stderr, "\n%s\n\n", hr)
	for _, line := range art {
		fmt.Fprintf(os.Stderr, "%s%s%s\n", textColor, line, bannerlib.ColorReset)
	}
	fmt.Fprintf(os.Stderr, "\n%s  Event Ingest Gateway%s\n\n%s\n\n", textColor, bannerlib.ColorReset, hr)

	kvPad := 18
	kvLines := [][2]string{
		{"Version", version},
		{"Ops mode", string(cfg.OpsMode)},
		{"Port", fmt.Sprintf("%d", cfg.Port)},
		{"External sync", fmt.Sprintf("%v", cfg.ExternalSync)},
		{"JSONL fallback", fmt.Sprintf("%v", cfg.JSONLFallback)},
		{"Replay enabled", fmt.Sprintf("%v", cfg.ReplayEnabled)},
	}
	for _, kv := range kvLines {
		fmt.Fprintf(os.Stderr, "%s  %-*s %s%s\n", textColor, kvPad, kv[0], kv[1], bannerlib.ColorReset)
	}
	fmt.Fprintf(os.Stderr, "\n%s\n\n", hr)

	logger.Info().
		Str("version", version).
		Str("ops_mode", string(cfg.OpsMode)).
		Int("port", cfg.Port).
		Msg("event ingest gateway started")
}

// PrintShutdown displays the shutdown banner.
func PrintShutdown(logger *logging.Logger) {
	lineColor := bannerlib.ColorCyan
	textColor := bannerlib.ColorBold + bannerlib.ColorWhite
	hr := lineColor + strings.Repeat("═", 42) + bannerlib.ColorReset

	fmt.Fprintf(os.Stderr, "\n%s\n%s  EVENTGATE — SHUTTING DOWN%s\n%s\n\n", hr, textColor, bannerlib.ColorReset, hr)
	logger.Info().Msg("event ingest gateway shutting down")
}
