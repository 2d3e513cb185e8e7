// Cohortus - Signup Telemetry Anomaly Detection and Cohort Retention Analytics
// Copyright 2026 Cohortus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cohortus/cohortus

// Package metrics provides Prometheus instrumentation for Cohortus:
// telemetry fetch latency and pagination, circuit breaker state, detection
// and cohort run outcomes, API request latency, and websocket fan-out.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Telemetry source metrics
	TelemetryFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cohortus_telemetry_fetch_duration_seconds",
			Help:    "Duration of telemetry API window fetches, all pages included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"category", "group_by"},
	)

	TelemetryFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cohortus_telemetry_fetch_errors_total",
			Help: "Total telemetry fetch failures",
		},
		[]string{"category", "reason"},
	)

	TelemetryPagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cohortus_telemetry_pages_fetched_total",
			Help: "Total pages retrieved from the telemetry API",
		},
		[]string{"category"},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cohortus_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cohortus_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cohortus_circuit_breaker_requests_total",
			Help: "Requests through the circuit breaker by outcome",
		},
		[]string{"name", "outcome"},
	)

	// Detection pipeline metrics
	DetectionRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cohortus_detection_runs_total",
			Help: "Detection runs by outcome (success, error)",
		},
		[]string{"outcome"},
	)

	DetectionRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cohortus_detection_run_duration_seconds",
			Help:    "End-to-end duration of a detection run including fetches",
			Buckets: prometheus.DefBuckets,
		},
	)

	AnomaliesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cohortus_anomalies_detected_total",
			Help: "Anomalies produced by detection runs, by alert level",
		},
		[]string{"alert_level"},
	)

	CohortRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cohortus_cohort_runs_total",
			Help: "Cohort analysis runs by outcome (success, error)",
		},
		[]string{"outcome"},
	)

	// API metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cohortus_api_request_duration_seconds",
			Help:    "API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cohortus_api_active_requests",
			Help: "Number of API requests currently in flight",
		},
	)

	// WebSocket metrics
	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cohortus_websocket_clients",
			Help: "Connected websocket clients",
		},
	)

	WebSocketMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cohortus_websocket_messages_sent_total",
			Help: "Messages broadcast to websocket clients",
		},
	)
)

// RecordAPIRequest records one completed API request.
func RecordAPIRequest(method, path, status string, duration time.Duration) {
	APIRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordDetectionRun records a completed detection run and its anomalies.
func RecordDetectionRun(duration time.Duration, err error, anomaliesByLevel map[string]int) {
	DetectionRunDuration.Observe(duration.Seconds())
	if err != nil {
		DetectionRuns.WithLabelValues("error").Inc()
		return
	}
	DetectionRuns.WithLabelValues("success").Inc()
	for level, n := range anomaliesByLevel {
		AnomaliesDetected.WithLabelValues(level).Add(float64(n))
	}
}
