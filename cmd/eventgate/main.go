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

// Package main wires up and runs the event ingest gateway: it loads
// configuration, constructs the components the Mode Machine (C13) decides
// are active, starts the background workers it armed, and serves the
// ingest controller's HTTP surface until signalled to shut down.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventgate/internal/gateway/api"
	"eventgate/internal/gateway/banner"
	"eventgate/internal/gateway/config"
	"eventgate/internal/gateway/core"
	"eventgate/internal/gateway/logging"
	"eventgate/internal/gateway/replay"
	"eventgate/internal/gateway/sink"
	"eventgate/internal/gateway/spool"
	"eventgate/pkg/clock"
)

var version = "dev"

func main() {
	configFile := flag.String("config", "", "optional TOML config file overlay (env vars always win)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	clk := clock.Real{}

	deps := api.Deps{Cfg: cfg, Log: logger, Clk: clk, BuildVersion: version}

	if cfg.DedupeActive() {
		deps.Dedupe = core.NewDuplicateWindow(cfg.DedupeWindowMs)
		deps.Ring = core.NewSummaryRing(cfg.StoreLimit)
	}

	if cfg.QueueActive() {
		deps.Queue = core.NewForwardQueue(cfg.QueueLimit, cfg.WorkerMaxRetry, cfg.WorkerBackoffBase)
		sheetsClient := sink.NewSheetsClient(
			cfg.SheetID, cfg.EventsSheetName,
			cfg.GoogleServiceAccountJSONB64, cfg.GoogleServiceAccountJSON,
			cfg.GASTimeout(),
		)
		deps.Worker = core.NewWorker(deps.Queue, sheetsClient, cfg.WorkerInterval(), cfg.WorkerBatchSize, nil)
	}

	if cfg.SpoolActive() {
		spoolPath := cfg.JSONLDir + "/" + cfg.JSONLFile
		writer, err := spool.NewWriter(spoolPath, cfg.JSONLMaxBytes, clk)
		if err != nil {
			logger.Error().Err(err).Msg("failed to open spool writer")
			os.Exit(1)
		}
		deps.SpoolWriter = writer
		deps.States = spool.NewStateStore(cfg.JSONLDir+"/"+cfg.ReplayStateFile, clk)
	}

	deps.Webhook = sink.NewWebhookClient(cfg.GASWebappURL, cfg.ITPlaylabSecret, cfg.GASTimeout())

	if cfg.ReplayActive() && deps.SpoolWriter != nil && deps.Webhook != nil {
		deps.ReplayWorker = replay.NewWorker(
			deps.SpoolWriter.Path(), deps.States, deps.Webhook,
			cfg.ReplayMode, cfg.ReplayInterval(), cfg.ReplayBatchSize, cfg.ReplayMaxBytesPerTick, clk,
		)
	}

	banner.Print(version, cfg, logger)

	if deps.Worker != nil {
		deps.Worker.Start()
	}
	if deps.ReplayWorker != nil {
		deps.ReplayWorker.Start()
	}

	server := api.NewServer(deps)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped unexpectedly")
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	banner.PrintShutdown(logger)

	if deps.Worker != nil {
		deps.Worker.Stop()
	}
	if deps.ReplayWorker != nil {
		deps.ReplayWorker.Stop()
	}
	if deps.SpoolWriter != nil {
		if err := deps.SpoolWriter.Close(); err != nil {
			logger.Error().Err(err).Msg("spool close on shutdown failed")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown failed")
		os.Exit(1)
	}
}
