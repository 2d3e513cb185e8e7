// Cohortus - Signup Telemetry Anomaly Detection and Cohort Retention Analytics
// Copyright 2026 Cohortus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cohortus/cohortus

// Package telemetry implements the client for the external telemetry API
// that serves period-bucketed, per-country aggregate counts.
//
// The client paginates every request to completion before returning: the
// detection and cohort pipelines must never see a partial series. Outbound
// requests are rate limited, HTTP 429 responses are retried with exponential
// backoff, and the whole client can be wrapped in a circuit breaker for
// production deployments.
package telemetry

import (
	"context"

	"github.com/cohortus/cohortus/internal/models"
)

// Source yields complete, already-paginated count series from the telemetry
// API. Implemented by Client for production and by fakes in tests.
//
// All methods are safe for concurrent use.
type Source interface {
	// CountsByCountry returns per-country daily aggregates for the window,
	// fully paginated and concatenated.
	CountsByCountry(ctx context.Context, category models.Category, window models.Window) ([]models.CountRecord, error)

	// MonthlyCounts returns per-period monthly aggregates for the window,
	// fully paginated and concatenated.
	MonthlyCounts(ctx context.Context, category models.Category, window models.Window) ([]models.CountRecord, error)
}
