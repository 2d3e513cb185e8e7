// Cohortus - Signup Telemetry Anomaly Detection and Cohort Retention Analytics
// Copyright 2026 Cohortus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cohortus/cohortus

package detection

import "sort"

// Rank orders anomalies by severity descending, ties broken by percentage
// change descending. The sort is stable and operates on a copy; the input
// slice is never mutated and no element is filtered.
func Rank(anomalies []Anomaly) []Anomaly {
	ranked := make([]Anomaly, len(anomalies))
	copy(ranked, anomalies)

	sort.SliceStable(ranked, func(i, j int) bool {
		ri, rj := ranked[i].AlertLevel.Rank(), ranked[j].AlertLevel.Rank()
		if ri != rj {
			return ri > rj
		}
		return ranked[i].PercentageChange > ranked[j].PercentageChange
	})

	return ranked
}
