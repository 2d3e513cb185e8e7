// Cohortus - Signup Telemetry Anomaly Detection and Cohort Retention Analytics
// Copyright 2026 Cohortus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cohortus/cohortus

// Package detection implements the signup-anomaly and shutdown early-warning
// detector.
//
// The pipeline is a sequence of pure functions: CompareToBaseline flags
// countries whose current signup counts spike against a baseline window,
// PointRetentionRate computes a coarse current-window retention rate per
// flagged country, Classify maps (spike, retention) to an alert, and Rank
// orders the alerts by severity. The Detector orchestrates the concurrent
// window fetches and feeds the pipeline.
//
// The classifier is a tuned heuristic, not a statistical model: a genuine
// shutdown-driven signup surge shows real engagement (high retention), while
// a spam or bot surge shows near-zero retention.
package detection

import (
	"time"

	"github.com/cohortus/cohortus/internal/models"
)

// AlertType is the dashboard presentation class of an anomaly.
type AlertType string

const (
	AlertTypeInfo    AlertType = "info"
	AlertTypeWarning AlertType = "warning"
	AlertTypeError   AlertType = "error"
)

// AlertLevel is the severity of an anomaly.
type AlertLevel string

const (
	AlertLevelLow      AlertLevel = "Low"
	AlertLevelMedium   AlertLevel = "Medium"
	AlertLevelHigh     AlertLevel = "High"
	AlertLevelCritical AlertLevel = "Critical"
)

// Rank returns the numeric severity used for ordering:
// Critical(4) > High(3) > Medium(2) > Low(1).
func (l AlertLevel) Rank() int {
	switch l {
	case AlertLevelCritical:
		return 4
	case AlertLevelHigh:
		return 3
	case AlertLevelMedium:
		return 2
	case AlertLevelLow:
		return 1
	default:
		return 0
	}
}

// Alert messages. The wording is part of the operator-facing contract.
const (
	MessageShutdownPreparation = "Possible shutdown preparation - Users actively using service"
	MessageModerateRetention   = "Moderate retention - Monitor for confirmation"
	MessageSpamBotAttack       = "Possible spam/bot attack - Low retention rate"
)

// Candidate is a country flagged by the baseline comparator, before
// classification.
type Candidate struct {
	CountryCode      string  `json:"country_code"`
	CountryName      string  `json:"country_name"`
	CurrentCount     int     `json:"current_count"`
	BaselineCount    int     `json:"baseline_count"`
	PercentageChange float64 `json:"percentage_change"`
}

// Anomaly is one classified alert. Anomalies are created fresh on every
// detection run and never mutated; they carry no identity beyond the run
// that produced them.
type Anomaly struct {
	CountryCode      string     `json:"country_code"`
	CountryName      string     `json:"country_name"`
	CurrentCount     int        `json:"current_count"`
	BaselineCount    int        `json:"baseline_count"`
	PercentageChange float64    `json:"percentage_change"`
	RetentionRate    float64    `json:"retention_rate"`
	AlertType        AlertType  `json:"alert_type"`
	AlertLevel       AlertLevel `json:"alert_level"`
	Message          string     `json:"message"`
	Confidence       float64    `json:"confidence"`
	DetectedAt       time.Time  `json:"detected_at"`
}

// Report is the ordered output of one detection run, with the total-count
// sanity fields that keep unattributed records visible.
type Report struct {
	Anomalies      []Anomaly     `json:"anomalies"`
	GeneratedAt    time.Time     `json:"generated_at"`
	CurrentWindow  models.Window `json:"current_window"`
	BaselineWindow models.Window `json:"baseline_window"`

	// Sanity totals: sums over the raw series including the unattributed
	// bucket, so per-country filtering can never hide volume.
	TotalCurrentSignups  int `json:"total_current_signups"`
	TotalBaselineSignups int `json:"total_baseline_signups"`
	UnattributedCurrent  int `json:"unattributed_current"`
}

// AnomalyCountsByLevel tallies a report's anomalies per alert level,
// shaped for metrics recording.
func (r *Report) AnomalyCountsByLevel() map[string]int {
	counts := make(map[string]int, 4)
	for _, a := range r.Anomalies {
		counts[string(a.AlertLevel)]++
	}
	return counts
}
