// Cohortus - Signup Telemetry Anomaly Detection and Cohort Retention Analytics
// Copyright 2026 Cohortus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cohortus/cohortus

package cohort

// RetentionCurve is one cohort's retention series shaped for direct
// charting: index i carries the retention percentage at month offset i.
type RetentionCurve struct {
	CohortLabel string    `json:"cohort_label"`
	Series      []float64 `json:"series"`
	Partial     bool      `json:"partial,omitempty"`
}

// ProjectCurves converts cohorts into chartable retention curves without
// mutating the underlying cohort list. A positive limit keeps only the most
// recent limit cohorts (the input is chronological); limit <= 0 keeps all.
func ProjectCurves(cohorts []Cohort, limit int) []RetentionCurve {
	selected := cohorts
	if limit > 0 && len(selected) > limit {
		selected = selected[len(selected)-limit:]
	}

	curves := make([]RetentionCurve, 0, len(selected))
	for _, c := range selected {
		series := make([]float64, len(c.RetentionPeriods))
		for i, point := range c.RetentionPeriods {
			series[i] = point.RetentionPercentage
		}
		curves = append(curves, RetentionCurve{
			CohortLabel: c.CohortPeriod,
			Series:      series,
			Partial:     c.Partial,
		})
	}
	return curves
}
