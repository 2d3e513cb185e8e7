// Cohortus - Signup Telemetry Anomaly Detection and Cohort Retention Analytics
// Copyright 2026 Cohortus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cohortus/cohortus

package detection

import "github.com/cohortus/cohortus/internal/models"

// PointRetentionRate computes the coarse current-window retention rate for
// one country: retained users as a percentage of signups, both summed over
// the window. It classifies the current spike only; cohort-based retention
// lives in the cohort package.
//
// signups == 0 resolves to 0, never NaN or Inf. The result is clamped into
// [0, 100]: a retained count exceeding the window's signups (long-lived
// accounts retained from before the window) reads as full retention.
func PointRetentionRate(signups, retained []models.CountRecord, countryCode string) float64 {
	totalSignups := models.SumCountsForCountry(signups, countryCode)
	if totalSignups == 0 {
		return 0
	}
	totalRetained := models.SumCountsForCountry(retained, countryCode)

	rate := float64(totalRetained) / float64(totalSignups) * 100
	return clampPercentage(rate)
}

// clampPercentage bounds v into [0, 100].
func clampPercentage(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
