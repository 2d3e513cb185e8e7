// Cohortus - Signup Telemetry Anomaly Detection and Cohort Retention Analytics
// Copyright 2026 Cohortus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cohortus/cohortus

package detection

import (
	"time"

	"github.com/cohortus/cohortus/internal/config"
)

// Classify maps a flagged country's spike and retention rate to an Anomaly.
//
// Tiers (boundaries and confidence constants come from cfg; defaults shown):
//
//	retention >= 50:     warning; High when >= 70, else Medium;
//	                     confidence = min(95, 50 + retention/2)
//	0 < retention < 50:  info, Low; confidence = 30 + retention
//	retention == 0:      error, Critical; confidence = 75
//
// High retention during a spike is consistent with users preparing for an
// anticipated disruption; zero retention is consistent with automated signup
// abuse.
func Classify(candidate Candidate, retentionRate float64, cfg *config.DetectionConfig, detectedAt time.Time) Anomaly {
	anomaly := Anomaly{
		CountryCode:      candidate.CountryCode,
		CountryName:      candidate.CountryName,
		CurrentCount:     candidate.CurrentCount,
		BaselineCount:    candidate.BaselineCount,
		PercentageChange: candidate.PercentageChange,
		RetentionRate:    clampPercentage(retentionRate),
		DetectedAt:       detectedAt,
	}

	switch {
	case anomaly.RetentionRate >= cfg.ShutdownRetentionThreshold:
		anomaly.AlertType = AlertTypeWarning
		anomaly.AlertLevel = AlertLevelMedium
		if anomaly.RetentionRate >= cfg.HighRetentionThreshold {
			anomaly.AlertLevel = AlertLevelHigh
		}
		anomaly.Message = MessageShutdownPreparation
		anomaly.Confidence = min(cfg.ShutdownConfidenceCap, cfg.ShutdownConfidenceBase+anomaly.RetentionRate/2)

	case anomaly.RetentionRate > 0:
		anomaly.AlertType = AlertTypeInfo
		anomaly.AlertLevel = AlertLevelLow
		anomaly.Message = MessageModerateRetention
		anomaly.Confidence = cfg.ModerateConfidenceBase + anomaly.RetentionRate

	default:
		anomaly.AlertType = AlertTypeError
		anomaly.AlertLevel = AlertLevelCritical
		anomaly.Message = MessageSpamBotAttack
		anomaly.Confidence = cfg.BotConfidence
	}

	return anomaly
}
