// Cohortus - Signup Telemetry Anomaly Detection and Cohort Retention Analytics
// Copyright 2026 Cohortus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cohortus/cohortus

package detection

import (
	"sort"

	"github.com/cohortus/cohortus/internal/config"
	"github.com/cohortus/cohortus/internal/models"
)

// CompareToBaseline aggregates the current and baseline series per country
// and flags candidates whose growth crosses the configured thresholds.
//
// For every country present in the current series:
//
//	baseline == 0: change = 100 if current > 0, else 0
//	otherwise:     change = (current - baseline) / baseline * 100
//
// A country is flagged iff change > SpikeRatioThreshold, or the absolute
// growth exceeds MinAbsoluteDelta while change > MinDeltaRatioThreshold.
// Both comparisons are strict.
//
// The unattributed bucket never produces a candidate; it is surfaced through
// the report's sanity totals instead. Output is sorted by country code so
// identical inputs yield identical outputs.
func CompareToBaseline(current, baseline []models.CountRecord, cfg *config.DetectionConfig) []Candidate {
	currentTotals := models.AggregateByCountry(current)
	baselineTotals := models.AggregateByCountry(baseline)

	candidates := make([]Candidate, 0)
	for code, cur := range currentTotals {
		if code == models.UnattributedCountryCode {
			continue
		}
		base := baselineTotals[code].Count
		change := PercentageChange(cur.Count, base)

		spiked := change > cfg.SpikeRatioThreshold
		grewEnough := cur.Count-base > cfg.MinAbsoluteDelta && change > cfg.MinDeltaRatioThreshold
		if !spiked && !grewEnough {
			continue
		}

		candidates = append(candidates, Candidate{
			CountryCode:      cur.CountryCode,
			CountryName:      cur.CountryName,
			CurrentCount:     cur.Count,
			BaselineCount:    base,
			PercentageChange: change,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CountryCode < candidates[j].CountryCode
	})
	return candidates
}

// PercentageChange computes the relative change from baseline to current,
// with the baseline-zero rule applied: a spike from nothing reads as 100%,
// nothing-to-nothing reads as 0%.
func PercentageChange(current, baseline int) float64 {
	if baseline == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return float64(current-baseline) / float64(baseline) * 100
}
