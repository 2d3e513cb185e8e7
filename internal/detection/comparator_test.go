// Cohortus - Signup Telemetry Anomaly Detection and Cohort Retention Analytics
// Copyright 2026 Cohortus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cohortus/cohortus

package detection

import (
	"reflect"
	"testing"

	"github.com/cohortus/cohortus/internal/config"
	"github.com/cohortus/cohortus/internal/models"
)

func testDetectionConfig() *config.DetectionConfig {
	cfg := config.DefaultConfig().Detection
	return &cfg
}

func TestPercentageChangeBaselineZero(t *testing.T) {
	if got := PercentageChange(5, 0); got != 100 {
		t.Errorf("PercentageChange(5, 0) = %v, want 100", got)
	}
	if got := PercentageChange(0, 0); got != 0 {
		t.Errorf("PercentageChange(0, 0) = %v, want 0", got)
	}
}

func TestPercentageChange(t *testing.T) {
	tests := []struct {
		current, baseline int
		want              float64
	}{
		{40, 10, 300},
		{41, 10, 310},
		{10, 10, 0},
		{5, 10, -50},
		{30, 10, 200},
	}

	for _, tt := range tests {
		if got := PercentageChange(tt.current, tt.baseline); got != tt.want {
			t.Errorf("PercentageChange(%d, %d) = %v, want %v", tt.current, tt.baseline, got, tt.want)
		}
	}
}

// Spike ratio threshold is strict: exactly 200% change does not flag.
func TestCompareToBaselineStrictThreshold(t *testing.T) {
	baseline := []models.CountRecord{{Period: "2024-03-01", CountryCode: "NG", CountryName: "Nigeria", Count: 10}}

	// 10 -> 30 is exactly +200%, below the absolute-delta path too.
	current := []models.CountRecord{{Period: "2024-03-08", CountryCode: "NG", CountryName: "Nigeria", Count: 30}}
	if flagged := CompareToBaseline(current, baseline, testDetectionConfig()); len(flagged) != 0 {
		t.Errorf("+200%% exactly should not flag, got %+v", flagged)
	}

	// 10 -> 41 is +310% and flags.
	current = []models.CountRecord{{Period: "2024-03-08", CountryCode: "NG", CountryName: "Nigeria", Count: 41}}
	flagged := CompareToBaseline(current, baseline, testDetectionConfig())
	if len(flagged) != 1 {
		t.Fatalf("+310%% should flag, got %+v", flagged)
	}
	if flagged[0].PercentageChange != 310 {
		t.Errorf("percentage change = %v, want 310", flagged[0].PercentageChange)
	}
	if flagged[0].CurrentCount != 41 || flagged[0].BaselineCount != 10 {
		t.Errorf("counts = %d/%d, want 41/10", flagged[0].CurrentCount, flagged[0].BaselineCount)
	}
}

func TestCompareToBaselineAbsoluteDeltaPath(t *testing.T) {
	// 100 -> 260: +160% is under the 200% spike threshold, but growth of
	// 160 exceeds the 50 absolute delta with change above 100%.
	baseline := []models.CountRecord{{CountryCode: "SD", CountryName: "Sudan", Count: 100}}
	current := []models.CountRecord{{CountryCode: "SD", CountryName: "Sudan", Count: 260}}

	flagged := CompareToBaseline(current, baseline, testDetectionConfig())
	if len(flagged) != 1 {
		t.Fatalf("expected absolute-delta path to flag, got %+v", flagged)
	}

	// 100 -> 145: +45 delta is under 50; not flagged despite any ratio.
	current = []models.CountRecord{{CountryCode: "SD", CountryName: "Sudan", Count: 145}}
	if flagged := CompareToBaseline(current, baseline, testDetectionConfig()); len(flagged) != 0 {
		t.Errorf("small delta should not flag, got %+v", flagged)
	}
}

func TestCompareToBaselineSumsAcrossPeriods(t *testing.T) {
	baseline := []models.CountRecord{
		{Period: "2024-03-01", CountryCode: "NG", CountryName: "Nigeria", Count: 4},
		{Period: "2024-03-02", CountryCode: "NG", CountryName: "Nigeria", Count: 6},
	}
	current := []models.CountRecord{
		{Period: "2024-03-08", CountryCode: "NG", CountryName: "Nigeria", Count: 20},
		{Period: "2024-03-09", CountryCode: "ng", CountryName: "Nigeria", Count: 21},
	}

	flagged := CompareToBaseline(current, baseline, testDetectionConfig())
	if len(flagged) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(flagged))
	}
	if flagged[0].CurrentCount != 41 || flagged[0].BaselineCount != 10 {
		t.Errorf("aggregation wrong: %+v", flagged[0])
	}
}

func TestCompareToBaselineIgnoresUnattributed(t *testing.T) {
	current := []models.CountRecord{
		{CountryCode: "", CountryName: "", Count: 10000},
		{CountryCode: "123", CountryName: "", Count: 500},
	}

	flagged := CompareToBaseline(current, nil, testDetectionConfig())
	if len(flagged) != 0 {
		t.Errorf("unattributed bucket must not produce candidates, got %+v", flagged)
	}
}

func TestCompareToBaselineEmptyInputs(t *testing.T) {
	flagged := CompareToBaseline(nil, nil, testDetectionConfig())
	if len(flagged) != 0 {
		t.Errorf("empty inputs should yield empty candidate list, got %+v", flagged)
	}
}

func TestCompareToBaselineIdempotent(t *testing.T) {
	baseline := []models.CountRecord{
		{CountryCode: "NG", CountryName: "Nigeria", Count: 10},
		{CountryCode: "IR", CountryName: "Iran", Count: 20},
		{CountryCode: "SD", CountryName: "Sudan", Count: 5},
	}
	current := []models.CountRecord{
		{CountryCode: "NG", CountryName: "Nigeria", Count: 100},
		{CountryCode: "IR", CountryName: "Iran", Count: 400},
		{CountryCode: "SD", CountryName: "Sudan", Count: 5},
	}

	first := CompareToBaseline(current, baseline, testDetectionConfig())
	second := CompareToBaseline(current, baseline, testDetectionConfig())

	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical inputs produced different outputs:\n%+v\n%+v", first, second)
	}
	if len(first) != 2 {
		t.Errorf("expected NG and IR flagged, got %+v", first)
	}
}
