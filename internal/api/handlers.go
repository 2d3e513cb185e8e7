// Cohortus - Signup Telemetry Anomaly Detection and Cohort Retention Analytics
// Copyright 2026 Cohortus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cohortus/cohortus

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/cohortus/cohortus/internal/cohort"
	"github.com/cohortus/cohortus/internal/detection"
	"github.com/cohortus/cohortus/internal/models"
	"github.com/cohortus/cohortus/internal/telemetry"
	"github.com/cohortus/cohortus/internal/validation"
	"github.com/cohortus/cohortus/internal/websocket"
)

// Handler serves the Cohortus API endpoints. Detection and cohort runs
// execute on demand; results are never cached server-side because the
// upstream series change continuously.
type Handler struct {
	detector *detection.Detector
	engine   *cohort.Engine
	hub      *websocket.Hub

	// now is replaceable for tests.
	now func() time.Time
}

// NewHandler creates a Handler over the detection and cohort engines.
func NewHandler(detector *detection.Detector, engine *cohort.Engine, hub *websocket.Hub) *Handler {
	return &Handler{
		detector: detector,
		engine:   engine,
		hub:      hub,
		now:      time.Now,
	}
}

// Anomalies runs a detection sweep and returns the ranked anomaly report.
//
//	GET /api/v1/anomalies
func (h *Handler) Anomalies(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	report, err := h.detector.Run(r.Context(), h.now())
	if err != nil {
		respondUpstreamError(w, "DETECTION_FAILED", "anomaly detection run failed", err)
		return
	}

	respondJSON(w, http.StatusOK, models.NewSuccessResponse(report, time.Since(start)))
}

// Cohorts runs a cohort analysis and returns the full cohort list.
//
//	GET /api/v1/cohorts
func (h *Handler) Cohorts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	result, err := h.engine.Run(r.Context(), h.now())
	if err != nil {
		respondUpstreamError(w, "COHORT_FAILED", "cohort analysis run failed", err)
		return
	}

	respondJSON(w, http.StatusOK, models.NewSuccessResponse(result, time.Since(start)))
}

// curvesRequest carries the validated query parameters of CohortCurves.
type curvesRequest struct {
	Limit int `validate:"min=0,max=60"`
}

// CohortCurves returns chart-ready retention curves, optionally limited to
// the most recent N cohorts via ?limit=N.
//
//	GET /api/v1/cohorts/curves?limit=12
func (h *Handler) CohortCurves(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req := curvesRequest{Limit: getIntParam(r, "limit", 0)}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error(), nil)
		return
	}

	result, err := h.engine.Run(r.Context(), h.now())
	if err != nil {
		respondUpstreamError(w, "COHORT_FAILED", "cohort analysis run failed", err)
		return
	}

	curves := cohort.ProjectCurves(result.Cohorts, req.Limit)
	respondJSON(w, http.StatusOK, models.NewSuccessResponse(curves, time.Since(start)))
}

// HealthLive reports process liveness.
//
//	GET /api/v1/health/live
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{
		"status": "alive",
	}, 0))
}

// HealthReady reports readiness to serve analysis requests.
//
//	GET /api/v1/health/ready
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{
		"status": "ready",
	}, 0))
}

// WebSocket upgrades the connection and subscribes it to anomaly broadcasts.
//
//	GET /api/v1/ws
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "WS_DISABLED", "websocket feed is not enabled", nil)
		return
	}
	websocket.ServeWS(h.hub, w, r)
}

// respondUpstreamError maps telemetry failures to HTTP statuses: an open
// circuit breaker or rate-limit exhaustion is 503, any other upstream fetch
// failure is 502.
func respondUpstreamError(w http.ResponseWriter, code, message string, err error) {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		respondError(w, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE",
			"telemetry API circuit breaker is open", err)
	case errors.Is(err, telemetry.ErrRateLimited):
		respondError(w, http.StatusServiceUnavailable, "UPSTREAM_RATE_LIMITED",
			"telemetry API rate limit exhausted", err)
	default:
		var fetchErr *telemetry.FetchError
		if errors.As(err, &fetchErr) {
			respondError(w, http.StatusBadGateway, code, message, err)
			return
		}
		respondError(w, http.StatusInternalServerError, code, message, err)
	}
}
