// Cohortus - Signup Telemetry Anomaly Detection and Cohort Retention Analytics
// Copyright 2026 Cohortus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cohortus/cohortus

package cohort

import (
	"math"
	"sort"

	"github.com/cohortus/cohortus/internal/config"
	"github.com/cohortus/cohortus/internal/models"
)

// RetentionPoint is one tracked offset of a cohort.
type RetentionPoint struct {
	// Offset is the number of months since cohort formation. Offset 0 is
	// the cohort month itself and always reads 100%.
	Offset int `json:"offset"`

	RetainedCount       int     `json:"retained_count"`
	RetentionPercentage float64 `json:"retention_percentage"`

	// Partial marks an offset whose period lies beyond the available
	// retained-user data. The counts still read as zero for chart
	// continuity, but the zero means "not yet reported", not "nobody
	// stayed". Callers must not present partial points as confirmed churn.
	Partial bool `json:"partial,omitempty"`
}

// Cohort is one monthly signup cohort with its forward retention track.
type Cohort struct {
	// CohortPeriod is the "YYYY-MM" month the cohort's signups originated in.
	CohortPeriod string `json:"cohort_period"`

	SignupCount      int              `json:"signup_count"`
	RetentionPeriods []RetentionPoint `json:"retention_periods"`

	// Partial is set when any retention point is partial.
	Partial bool `json:"partial,omitempty"`
}

// BuildCohorts groups the monthly signup series into cohorts and projects
// retention forward at offsets 0..cfg.Offsets-1 using the retained series.
//
// Input records may be split per country; counts are summed per period
// first. Output is capped to the most recent cfg.CountLimit cohorts and
// stored in chronological order (consumers may reverse for display).
//
// A missing retained record inside the reported data range counts as zero
// retention. This mirrors the upstream dashboard's approximation: absent
// telemetry and confirmed-zero retention are indistinguishable in the
// series. Offsets beyond the last reported retained period are additionally
// marked Partial so recent cohorts are not misread as fully churned.
func BuildCohorts(signups, retained []models.CountRecord, cfg *config.CohortConfig) []Cohort {
	signupTotals := models.AggregateByPeriod(signups)
	retainedTotals := models.AggregateByPeriod(retained)

	periods := make([]string, 0, len(signupTotals))
	for period := range signupTotals {
		// Records with unparseable period labels cannot anchor offset
		// arithmetic; skip them rather than building broken cohorts.
		if _, err := ParseMonth(period); err != nil {
			continue
		}
		periods = append(periods, period)
	}
	// "YYYY-MM" labels sort chronologically as strings.
	sort.Strings(periods)

	if len(periods) > cfg.CountLimit {
		periods = periods[len(periods)-cfg.CountLimit:]
	}

	lastReported := lastReportedPeriod(retainedTotals)

	cohorts := make([]Cohort, 0, len(periods))
	for _, period := range periods {
		cohorts = append(cohorts, buildCohort(period, signupTotals[period], retainedTotals, lastReported, cfg.Offsets))
	}
	return cohorts
}

// buildCohort projects one cohort forward.
func buildCohort(period string, signupCount int, retainedTotals map[string]int, lastReported string, offsets int) Cohort {
	cohort := Cohort{
		CohortPeriod:     period,
		SignupCount:      signupCount,
		RetentionPeriods: make([]RetentionPoint, 0, offsets),
	}

	for offset := 0; offset < offsets; offset++ {
		if offset == 0 {
			// The cohort month itself: its own signups, 100% by definition.
			cohort.RetentionPeriods = append(cohort.RetentionPeriods, RetentionPoint{
				Offset:              0,
				RetainedCount:       signupCount,
				RetentionPercentage: 100,
			})
			continue
		}

		target, err := AddMonths(period, offset)
		if err != nil {
			continue
		}

		point := RetentionPoint{Offset: offset}
		point.Partial = lastReported == "" || target > lastReported
		if !point.Partial {
			point.RetainedCount = retainedTotals[target]
			point.RetentionPercentage = retentionPercentage(point.RetainedCount, signupCount)
		}
		if point.Partial {
			cohort.Partial = true
		}
		cohort.RetentionPeriods = append(cohort.RetentionPeriods, point)
	}

	return cohort
}

// lastReportedPeriod returns the latest period label present in the
// retained series, or "" when the series is empty.
func lastReportedPeriod(retainedTotals map[string]int) string {
	last := ""
	for period := range retainedTotals {
		if _, err := ParseMonth(period); err != nil {
			continue
		}
		if period > last {
			last = period
		}
	}
	return last
}

// retentionPercentage computes retained/signups as a percentage, rounded to
// one decimal and clamped into [0, 100]. signups == 0 resolves to 0.
func retentionPercentage(retained, signups int) float64 {
	if signups == 0 {
		return 0
	}
	pct := math.Round(float64(retained)/float64(signups)*1000) / 10
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
