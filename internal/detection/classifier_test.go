// Cohortus - Signup Telemetry Anomaly Detection and Cohort Retention Analytics
// Copyright 2026 Cohortus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cohortus/cohortus

package detection

import (
	"testing"
	"time"
)

var classifyTime = time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC)

func testCandidate() Candidate {
	return Candidate{
		CountryCode:      "NG",
		CountryName:      "Nigeria",
		CurrentCount:     410,
		BaselineCount:    100,
		PercentageChange: 310,
	}
}

// High retention during a spike reads as shutdown preparation.
func TestClassifyHighRetention(t *testing.T) {
	anomaly := Classify(testCandidate(), 75, testDetectionConfig(), classifyTime)

	if anomaly.AlertType != AlertTypeWarning {
		t.Errorf("alert type = %s, want warning", anomaly.AlertType)
	}
	if anomaly.AlertLevel != AlertLevelHigh {
		t.Errorf("alert level = %s, want High", anomaly.AlertLevel)
	}
	if anomaly.Message != MessageShutdownPreparation {
		t.Errorf("message = %q", anomaly.Message)
	}
	// confidence = min(95, 50 + 75/2) = 87.5
	if anomaly.Confidence != 87.5 {
		t.Errorf("confidence = %v, want 87.5", anomaly.Confidence)
	}
	if !anomaly.DetectedAt.Equal(classifyTime) {
		t.Errorf("detected_at = %v, want %v", anomaly.DetectedAt, classifyTime)
	}
}

func TestClassifyMediumRetentionTier(t *testing.T) {
	// 50 <= retention < 70 is a warning at Medium level.
	anomaly := Classify(testCandidate(), 55, testDetectionConfig(), classifyTime)

	if anomaly.AlertType != AlertTypeWarning {
		t.Errorf("alert type = %s, want warning", anomaly.AlertType)
	}
	if anomaly.AlertLevel != AlertLevelMedium {
		t.Errorf("alert level = %s, want Medium", anomaly.AlertLevel)
	}
	if anomaly.Confidence != 77.5 {
		t.Errorf("confidence = %v, want 77.5", anomaly.Confidence)
	}
}

func TestClassifyConfidenceCap(t *testing.T) {
	// 50 + 100/2 = 100, capped at 95.
	anomaly := Classify(testCandidate(), 100, testDetectionConfig(), classifyTime)
	if anomaly.Confidence != 95 {
		t.Errorf("confidence = %v, want capped 95", anomaly.Confidence)
	}
}

func TestClassifyModerateRetention(t *testing.T) {
	anomaly := Classify(testCandidate(), 25, testDetectionConfig(), classifyTime)

	if anomaly.AlertType != AlertTypeInfo {
		t.Errorf("alert type = %s, want info", anomaly.AlertType)
	}
	if anomaly.AlertLevel != AlertLevelLow {
		t.Errorf("alert level = %s, want Low", anomaly.AlertLevel)
	}
	if anomaly.Message != MessageModerateRetention {
		t.Errorf("message = %q", anomaly.Message)
	}
	// confidence = 30 + 25 = 55
	if anomaly.Confidence != 55 {
		t.Errorf("confidence = %v, want 55", anomaly.Confidence)
	}
}

// Zero retention during a spike reads as spam or bot signups.
func TestClassifyZeroRetention(t *testing.T) {
	anomaly := Classify(testCandidate(), 0, testDetectionConfig(), classifyTime)

	if anomaly.AlertType != AlertTypeError {
		t.Errorf("alert type = %s, want error", anomaly.AlertType)
	}
	if anomaly.AlertLevel != AlertLevelCritical {
		t.Errorf("alert level = %s, want Critical", anomaly.AlertLevel)
	}
	if anomaly.Message != MessageSpamBotAttack {
		t.Errorf("message = %q", anomaly.Message)
	}
	if anomaly.Confidence != 75 {
		t.Errorf("confidence = %v, want 75", anomaly.Confidence)
	}
}

func TestClassifyTierBoundaries(t *testing.T) {
	tests := []struct {
		retention float64
		wantType  AlertType
		wantLevel AlertLevel
	}{
		{70, AlertTypeWarning, AlertLevelHigh},
		{69.9, AlertTypeWarning, AlertLevelMedium},
		{50, AlertTypeWarning, AlertLevelMedium},
		{49.9, AlertTypeInfo, AlertLevelLow},
		{0.1, AlertTypeInfo, AlertLevelLow},
		{0, AlertTypeError, AlertLevelCritical},
	}

	for _, tt := range tests {
		anomaly := Classify(testCandidate(), tt.retention, testDetectionConfig(), classifyTime)
		if anomaly.AlertType != tt.wantType || anomaly.AlertLevel != tt.wantLevel {
			t.Errorf("retention %v: got %s/%s, want %s/%s",
				tt.retention, anomaly.AlertType, anomaly.AlertLevel, tt.wantType, tt.wantLevel)
		}
	}
}

func TestClassifyClampsRetention(t *testing.T) {
	anomaly := Classify(testCandidate(), 150, testDetectionConfig(), classifyTime)
	if anomaly.RetentionRate != 100 {
		t.Errorf("retention rate = %v, want clamped 100", anomaly.RetentionRate)
	}
	anomaly = Classify(testCandidate(), -10, testDetectionConfig(), classifyTime)
	if anomaly.RetentionRate != 0 {
		t.Errorf("retention rate = %v, want clamped 0", anomaly.RetentionRate)
	}
}
