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

// Package core also owns the process-level Prometheus metrics shared by the
// ingest controller and the background workers. These are cheap atomic
// updates on the hot path; registration happens once at package init.
package core

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	eventsReceivedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_events_received_total",
		Help: "Total events accepted by the ingest controller, labeled by endpoint.",
	}, []string{"endpoint"})

	duplicatesDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_duplicates_dropped_total",
		Help: "Total events dropped as duplicates by the duplicate window.",
	})

	summaryRingSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ingest_summary_ring_size",
		Help: "Current number of records held in the summary ring.",
	})

	queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ingest_queue_depth",
		Help: "Current number of items pending in the forward queue.",
	})
	// queueDroppedTotal/queueFailedTotal mirror ForwardQueue's own cumulative
	// counters (q.Dropped()/q.Failed()), so they are gauges set to the
	// reported total rather than counters incremented by it — the queue,
	// not this package, owns the increment.
	queueDroppedTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ingest_queue_dropped_total",
		Help: "Total items dropped from the forward queue due to drop-oldest overflow.",
	})
	queueFailedTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ingest_queue_failed_total",
		Help: "Total items dropped from the forward queue after exceeding WORKER_MAX_RETRY.",
	})
	queueSyncedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_queue_synced_total",
		Help: "Total items successfully removed from the queue after a sink commit.",
	})

	webhookLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ingest_webhook_latency_ms",
		Help:    "Webhook POST latency in milliseconds.",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	})
	webhookFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_webhook_failures_total",
		Help: "Total webhook POST attempts that did not succeed.",
	})

	replayOffset = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ingest_replay_offset_bytes",
		Help: "Current byte offset of the replay cursor into the spool file.",
	})
	replaySentTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_replay_sent_total",
		Help: "Total spool records successfully replayed to the webhook sink.",
	})
	replayFailedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_replay_failed_total",
		Help: "Total replay ticks that stopped on a failing record or a spool read error.",
	})
)

func init() {
	prometheus.MustRegister(
		eventsReceivedTotal, duplicatesDroppedTotal, summaryRingSize,
		queueDepth, queueDroppedTotal, queueFailedTotal, queueSyncedTotal,
		webhookLatency, webhookFailuresTotal,
		replayOffset, replaySentTotal, replayFailedTotal,
	)
}

// RecordEventsReceived increments the per-endpoint received counter.
func RecordEventsReceived(endpoint string, n int) {
	if n > 0 {
		eventsReceivedTotal.WithLabelValues(endpoint).Add(float64(n))
	}
}

// RecordDuplicatesDropped increments the duplicate-drop counter.
func RecordDuplicatesDropped(n int) {
	if n > 0 {
		duplicatesDroppedTotal.Add(float64(n))
	}
}

// SetSummaryRingSize sets the current summary ring occupancy gauge.
func SetSummaryRingSize(n int) { summaryRingSize.Set(float64(n)) }

// SetQueueDepth sets the current forward queue occupancy gauge.
func SetQueueDepth(n int) { queueDepth.Set(float64(n)) }

// RecordQueueDropped sets the drop-oldest gauge to the queue's cumulative total.
func RecordQueueDropped(total int64) { queueDroppedTotal.Set(float64(total)) }

// RecordQueueFailed sets the over-retry-drop gauge to the queue's cumulative total.
func RecordQueueFailed(total int64) { queueFailedTotal.Set(float64(total)) }

// RecordQueueSynced increments the successful-sync counter.
func RecordQueueSynced(n int) {
	if n > 0 {
		queueSyncedTotal.Add(float64(n))
	}
}

// ObserveWebhookLatency records the latency of a single webhook POST.
func ObserveWebhookLatency(ms float64) { webhookLatency.Observe(ms) }

// RecordWebhookFailure increments the webhook-failure counter.
func RecordWebhookFailure() { webhookFailuresTotal.Add(1) }

// SetReplayOffset sets the current replay cursor gauge.
func SetReplayOffset(offset int64) { replayOffset.Set(float64(offset)) }

// RecordReplaySent increments the replay-sent counter.
func RecordReplaySent(n int) {
	if n > 0 {
		replaySentTotal.Add(float64(n))
	}
}

// RecordReplayFailure increments the replay-tick-failed counter.
func RecordReplayFailure() { replayFailedTotal.Add(1) }

// MetricsHandler returns the promhttp handler to mount at /metrics.
func MetricsHandler() http.Handler { return promhttp.Handler() }
