// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

// Package metrics defines the Prometheus collectors exported on /metrics.
//
// Collectors are package-level promauto globals registered on the default
// registry. The relay hub, the API middleware, and the exporters update them
// through the Record* helpers so label values stay consistent.
package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Admission outcomes, used as the "outcome" label of RelayAlerts.
const (
	OutcomeAccepted      = "accepted"
	OutcomeLowConfidence = "low_confidence"
	OutcomeDuplicate     = "duplicate"
	OutcomeIneligible    = "ineligible"
	OutcomeMalformed     = "malformed"
)

var (
	// Relay Session Metrics
	RelaySessions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "relay_sessions",
			Help: "Current number of registered sessions by client kind",
		},
		[]string{"kind"}, // "unknown", "observer", "detector"
	)

	RelaySessionsOpened = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_sessions_opened_total",
			Help: "Total number of accepted WebSocket sessions",
		},
	)

	RelayReaps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_sessions_reaped_total",
			Help: "Total number of sessions terminated by the liveness monitor",
		},
		[]string{"reason"}, // "unregistered", "stale", "unanswered_probe"
	)

	// Ingestion Metrics
	RelayMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_messages_received_total",
			Help: "Total number of inbound WebSocket text frames",
		},
	)

	RelayIdentifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_identifications_total",
			Help: "Total number of identification messages by resolved kind",
		},
		[]string{"kind"},
	)

	RelayAlerts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_alerts_total",
			Help: "Total number of alert-shaped messages by admission outcome",
		},
		[]string{"outcome"},
	)

	RelayHistorySize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_history_size",
			Help: "Current number of alerts held in the history buffer",
		},
	)

	RelayHistoryEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_history_evictions_total",
			Help: "Total number of alerts evicted from the full history buffer",
		},
	)

	// Dispatch Metrics
	RelayDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_deliveries_total",
			Help: "Total number of alert broadcasts queued to sessions by kind",
		},
		[]string{"kind"},
	)

	RelayDeliveriesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_deliveries_skipped_total",
			Help: "Total number of broadcasts skipped because the session was closing",
		},
	)

	RelayDeliveriesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_deliveries_dropped_total",
			Help: "Total number of broadcasts dropped because a session queue was full",
		},
	)

	RelayDispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relay_dispatch_duration_seconds",
			Help:    "Time to fan one alert out to every session",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		},
	)

	// WebSocket Transport Metrics
	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages written to sockets",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Export Metrics
	ExportPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_export_published_total",
			Help: "Total number of accepted alerts handed to an exporter",
		},
		[]string{"sink", "result"}, // sink: "journal", "nats"; result: "ok", "error"
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordAdmission counts one alert-shaped message by outcome.
func RecordAdmission(outcome string) {
	RelayAlerts.WithLabelValues(outcome).Inc()
}

// SetSessionCounts replaces the per-kind session gauges. Kinds missing from
// counts are left untouched, so callers pass every kind.
func SetSessionCounts(counts map[string]int) {
	for kind, n := range counts {
		RelaySessions.WithLabelValues(kind).Set(float64(n))
	}
}

// RecordDispatch records one fan-out.
func RecordDispatch(byKind map[string]int, skipped, dropped int, duration time.Duration) {
	for kind, n := range byKind {
		if n > 0 {
			RelayDeliveries.WithLabelValues(kind).Add(float64(n))
		}
	}
	if skipped > 0 {
		RelayDeliveriesSkipped.Add(float64(skipped))
	}
	if dropped > 0 {
		RelayDeliveriesDropped.Add(float64(dropped))
	}
	RelayDispatchDuration.Observe(duration.Seconds())
}

// RecordReap counts a liveness termination.
func RecordReap(reason string) {
	RelayReaps.WithLabelValues(reason).Inc()
}

// RecordExport counts one exporter publish attempt.
func RecordExport(sink string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	ExportPublished.WithLabelValues(sink, result).Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// SetAppInfo publishes the build version.
func SetAppInfo(version string) {
	AppInfo.WithLabelValues(version, runtime.Version()).Set(1)
}

// UpdateUptime sets app_uptime_seconds from the process start time.
func UpdateUptime(start time.Time) {
	AppUptime.Set(time.Since(start).Seconds())
}
