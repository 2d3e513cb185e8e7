// Cohortus - Signup Telemetry Anomaly Detection and Cohort Retention Analytics
// Copyright 2026 Cohortus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cohortus/cohortus

package detection

import "testing"

func TestRankOrdersBySeverityThenMagnitude(t *testing.T) {
	anomalies := []Anomaly{
		{CountryCode: "AA", AlertLevel: AlertLevelLow, PercentageChange: 900},
		{CountryCode: "BB", AlertLevel: AlertLevelCritical, PercentageChange: 150},
		{CountryCode: "CC", AlertLevel: AlertLevelHigh, PercentageChange: 300},
		{CountryCode: "DD", AlertLevel: AlertLevelHigh, PercentageChange: 500},
		{CountryCode: "EE", AlertLevel: AlertLevelMedium, PercentageChange: 250},
	}

	ranked := Rank(anomalies)

	wantOrder := []string{"BB", "DD", "CC", "EE", "AA"}
	for i, want := range wantOrder {
		if ranked[i].CountryCode != want {
			t.Errorf("position %d: got %s, want %s", i, ranked[i].CountryCode, want)
		}
	}

	// Severity is non-increasing; ties have non-increasing magnitude.
	for i := 0; i+1 < len(ranked); i++ {
		ri, rj := ranked[i].AlertLevel.Rank(), ranked[i+1].AlertLevel.Rank()
		if ri < rj {
			t.Errorf("severity increases at %d: %s before %s", i, ranked[i].AlertLevel, ranked[i+1].AlertLevel)
		}
		if ri == rj && ranked[i].PercentageChange < ranked[i+1].PercentageChange {
			t.Errorf("magnitude increases within severity at %d", i)
		}
	}
}

func TestRankIsStable(t *testing.T) {
	// Equal severity and equal magnitude keep input order.
	anomalies := []Anomaly{
		{CountryCode: "AA", AlertLevel: AlertLevelHigh, PercentageChange: 300},
		{CountryCode: "BB", AlertLevel: AlertLevelHigh, PercentageChange: 300},
		{CountryCode: "CC", AlertLevel: AlertLevelHigh, PercentageChange: 300},
	}

	ranked := Rank(anomalies)
	for i, want := range []string{"AA", "BB", "CC"} {
		if ranked[i].CountryCode != want {
			t.Errorf("stability violated at %d: got %s, want %s", i, ranked[i].CountryCode, want)
		}
	}
}

func TestRankPreservesAllElements(t *testing.T) {
	anomalies := []Anomaly{
		{CountryCode: "AA", AlertLevel: AlertLevelLow},
		{CountryCode: "BB", AlertLevel: AlertLevelCritical},
	}

	ranked := Rank(anomalies)
	if len(ranked) != len(anomalies) {
		t.Fatalf("rank filtered elements: %d -> %d", len(anomalies), len(ranked))
	}

	// Input order is untouched.
	if anomalies[0].CountryCode != "AA" {
		t.Error("rank mutated its input")
	}
}

func TestRankEmpty(t *testing.T) {
	if got := Rank(nil); len(got) != 0 {
		t.Errorf("ranking nil should yield empty slice, got %v", got)
	}
}

func TestAlertLevelRank(t *testing.T) {
	if AlertLevelCritical.Rank() <= AlertLevelHigh.Rank() ||
		AlertLevelHigh.Rank() <= AlertLevelMedium.Rank() ||
		AlertLevelMedium.Rank() <= AlertLevelLow.Rank() ||
		AlertLevelLow.Rank() <= 0 {
		t.Error("alert level ranks must be strictly decreasing from Critical to Low")
	}
	if AlertLevel("bogus").Rank() != 0 {
		t.Error("unknown level should rank 0")
	}
}
