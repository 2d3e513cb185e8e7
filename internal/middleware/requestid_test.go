// Cohortus - Signup Telemetry Anomaly Detection and Cohort Retention Analytics
// Copyright 2026 Cohortus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cohortus/cohortus

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cohortus/cohortus/internal/logging"
)

func TestRequestIDGenerated(t *testing.T) {
	var seenID string
	handler := RequestID(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/v1/anomalies", nil))

	if seenID == "" {
		t.Fatal("request ID not present in handler context")
	}
	if got := rec.Header().Get("X-Request-ID"); got != seenID {
		t.Errorf("X-Request-ID header = %q, want %q", got, seenID)
	}
}

func TestRequestIDHonorsUpstream(t *testing.T) {
	handler := RequestID(func(w http.ResponseWriter, r *http.Request) {
		if got := GetRequestID(r.Context()); got != "upstream-id-42" {
			t.Errorf("request ID = %q, want upstream value", got)
		}
		if logging.RequestIDFromContext(r.Context()) != "upstream-id-42" {
			t.Error("logging context not seeded with request ID")
		}
		if logging.CorrelationIDFromContext(r.Context()) == "" {
			t.Error("logging context missing correlation ID")
		}
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream-id-42")
	handler(httptest.NewRecorder(), req)
}

func TestGetRequestIDMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetRequestID(req.Context()); got != "" {
		t.Errorf("GetRequestID on bare context = %q, want empty", got)
	}
}
