// Cohortus - Signup Telemetry Anomaly Detection and Cohort Retention Analytics
// Copyright 2026 Cohortus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cohortus/cohortus

// Package models provides the shared data structures for the Cohortus core:
// period-bucketed per-country aggregate counts and the helpers that shape
// them for the anomaly and cohort pipelines.
package models

import "time"

// Category identifies which telemetry series a count belongs to.
type Category string

const (
	// CategorySignup counts account-creation attempts.
	CategorySignup Category = "signup"

	// CategoryRetained counts signed-up users whose accounts are still active.
	CategoryRetained Category = "retained"
)

// Granularity is the period bucket size of a time series.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityMonth Granularity = "month"
)

// GroupBy selects the aggregation axis requested from the telemetry source.
type GroupBy string

const (
	GroupByDate    GroupBy = "date"
	GroupByCountry GroupBy = "country"
)

// UnattributedCountryCode is the synthetic bucket for records whose country
// code is missing or fails validation. Such records are excluded from
// per-country anomaly flagging but still participate in total-count sanity
// checks so totals are never silently dropped.
const UnattributedCountryCode = "??"

// UnattributedCountryName is the display name for the unattributed bucket.
const UnattributedCountryName = "Unattributed"

// Window is a half-open-ish date range [Start, End] as the telemetry API
// understands it (both bounds inclusive, date precision).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewWindow builds a Window from two dates.
func NewWindow(start, end time.Time) Window {
	return Window{Start: start, End: end}
}

// CountRecord is one period-bucketed, per-country aggregate count for a
// single category. Records are immutable once produced by aggregation.
type CountRecord struct {
	// Period is the bucket label: "2006-01-02" for daily series,
	// "2006-01" for monthly series.
	Period string `json:"period"`

	CountryCode string `json:"country_code"`
	CountryName string `json:"country_name"`
	Count       int    `json:"count"`
}

// ValidCountryCode reports whether code looks like an ISO 3166-1 alpha-2
// country code: exactly two ASCII letters.
func ValidCountryCode(code string) bool {
	if len(code) != 2 {
		return false
	}
	for i := 0; i < 2; i++ {
		c := code[i]
		isUpper := c >= 'A' && c <= 'Z'
		isLower := c >= 'a' && c <= 'z'
		if !isUpper && !isLower {
			return false
		}
	}
	return true
}

// NormalizeCountryCode uppercases a valid country code and maps anything
// invalid to the unattributed bucket.
func NormalizeCountryCode(code string) string {
	if !ValidCountryCode(code) {
		return UnattributedCountryCode
	}
	b := []byte(code)
	for i := range b {
		if b[i] >= 'a' && b[i] <= 'z' {
			b[i] -= 'a' - 'A'
		}
	}
	return string(b)
}

// CountryTotal is a per-country sum produced by AggregateByCountry.
type CountryTotal struct {
	CountryCode string
	CountryName string
	Count       int
}

// AggregateByCountry groups records by normalized country code, summing
// counts. Invalid codes land in the unattributed bucket rather than being
// dropped. The returned map is keyed by normalized code.
func AggregateByCountry(records []CountRecord) map[string]CountryTotal {
	totals := make(map[string]CountryTotal, len(records))
	for _, rec := range records {
		code := NormalizeCountryCode(rec.CountryCode)
		name := rec.CountryName
		if code == UnattributedCountryCode {
			name = UnattributedCountryName
		}
		total := totals[code]
		total.CountryCode = code
		if total.CountryName == "" {
			total.CountryName = name
		}
		total.Count += rec.Count
		totals[code] = total
	}
	return totals
}

// AggregateByPeriod groups records by period label, summing counts across
// countries. Used by the cohort branch where the country axis is irrelevant.
func AggregateByPeriod(records []CountRecord) map[string]int {
	totals := make(map[string]int, len(records))
	for _, rec := range records {
		totals[rec.Period] += rec.Count
	}
	return totals
}

// SumCounts returns the total count across all records.
func SumCounts(records []CountRecord) int {
	total := 0
	for _, rec := range records {
		total += rec.Count
	}
	return total
}

// SumCountsForCountry returns the total count restricted to one country.
// The code comparison uses normalized codes on both sides.
func SumCountsForCountry(records []CountRecord, countryCode string) int {
	code := NormalizeCountryCode(countryCode)
	total := 0
	for _, rec := range records {
		if NormalizeCountryCode(rec.CountryCode) == code {
			total += rec.Count
		}
	}
	return total
}
