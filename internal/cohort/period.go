// Cohortus - Signup Telemetry Anomaly Detection and Cohort Retention Analytics
// Copyright 2026 Cohortus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cohortus/cohortus

// Package cohort implements monthly signup cohorts and their forward
// retention projection.
//
// A cohort is the set of all signups originating in one month, tracked at
// month offsets 0..N-1 against the retained-user series. The builder and
// projector are pure functions; the Engine orchestrates the concurrent
// monthly-series fetches that feed them.
package cohort

import (
	"fmt"
	"time"
)

// monthLayout is the period label format for monthly buckets.
const monthLayout = "2006-01"

// ParseMonth parses a "YYYY-MM" period label into the first instant of that
// month in UTC.
func ParseMonth(label string) (time.Time, error) {
	t, err := time.Parse(monthLayout, label)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month period %q: %w", label, err)
	}
	return t, nil
}

// FormatMonth renders t's month as a "YYYY-MM" period label.
func FormatMonth(t time.Time) string {
	return t.Format(monthLayout)
}

// AddMonths returns the period label n months after label. Normalization
// follows time.AddDate; month-start anchoring makes it exact.
func AddMonths(label string, n int) (string, error) {
	t, err := ParseMonth(label)
	if err != nil {
		return "", err
	}
	return FormatMonth(t.AddDate(0, n, 0)), nil
}
