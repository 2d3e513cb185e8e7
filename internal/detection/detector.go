// Cohortus - Signup Telemetry Anomaly Detection and Cohort Retention Analytics
// Copyright 2026 Cohortus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cohortus/cohortus

package detection

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cohortus/cohortus/internal/config"
	"github.com/cohortus/cohortus/internal/logging"
	"github.com/cohortus/cohortus/internal/metrics"
	"github.com/cohortus/cohortus/internal/models"
	"github.com/cohortus/cohortus/internal/telemetry"
)

// Detector orchestrates one detection run: it fetches the three required
// windows concurrently, joins them, and feeds the pure pipeline. Partial
// results are never meaningful, so the first fetch failure cancels the
// remaining fetches and fails the whole run.
type Detector struct {
	source telemetry.Source
	cfg    *config.DetectionConfig
}

// NewDetector creates a Detector over the given source and thresholds.
func NewDetector(source telemetry.Source, cfg *config.DetectionConfig) *Detector {
	return &Detector{source: source, cfg: cfg}
}

// Windows computes the current and baseline windows for a run anchored at
// now: the current window is the last CurrentWindowDays days ending at now,
// the baseline window is the BaselineWindowDays days immediately before it.
func (d *Detector) Windows(now time.Time) (current, baseline models.Window) {
	day := now.Truncate(24 * time.Hour)
	current = models.NewWindow(day.AddDate(0, 0, -(d.cfg.CurrentWindowDays-1)), day)
	baselineEnd := current.Start.AddDate(0, 0, -1)
	baseline = models.NewWindow(baselineEnd.AddDate(0, 0, -(d.cfg.BaselineWindowDays-1)), baselineEnd)
	return current, baseline
}

// Run executes one detection sweep anchored at now and returns the ranked
// report. Re-running with identical source data yields an identical report
// apart from timestamps.
func (d *Detector) Run(ctx context.Context, now time.Time) (*Report, error) {
	start := time.Now()
	report, err := d.run(ctx, now)
	if report != nil {
		metrics.RecordDetectionRun(time.Since(start), err, report.AnomalyCountsByLevel())
	} else {
		metrics.RecordDetectionRun(time.Since(start), err, nil)
	}
	return report, err
}

func (d *Detector) run(ctx context.Context, now time.Time) (*Report, error) {
	currentWindow, baselineWindow := d.Windows(now)

	var (
		currentSignups  []models.CountRecord
		baselineSignups []models.CountRecord
		currentRetained []models.CountRecord
	)

	// The three windows load in parallel; the computation never suspends.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		currentSignups, err = d.source.CountsByCountry(gctx, models.CategorySignup, currentWindow)
		return err
	})
	g.Go(func() error {
		var err error
		baselineSignups, err = d.source.CountsByCountry(gctx, models.CategorySignup, baselineWindow)
		return err
	})
	g.Go(func() error {
		var err error
		currentRetained, err = d.source.CountsByCountry(gctx, models.CategoryRetained, currentWindow)
		return err
	})
	if err := g.Wait(); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("detection run aborted: window fetch failed")
		return nil, err
	}

	candidates := CompareToBaseline(currentSignups, baselineSignups, d.cfg)

	anomalies := make([]Anomaly, 0, len(candidates))
	for _, candidate := range candidates {
		rate := PointRetentionRate(currentSignups, currentRetained, candidate.CountryCode)
		anomalies = append(anomalies, Classify(candidate, rate, d.cfg, now))
	}

	report := &Report{
		Anomalies:            Rank(anomalies),
		GeneratedAt:          now,
		CurrentWindow:        currentWindow,
		BaselineWindow:       baselineWindow,
		TotalCurrentSignups:  models.SumCounts(currentSignups),
		TotalBaselineSignups: models.SumCounts(baselineSignups),
		UnattributedCurrent:  models.AggregateByCountry(currentSignups)[models.UnattributedCountryCode].Count,
	}

	logging.Ctx(ctx).Info().
		Int("candidates", len(candidates)).
		Int("anomalies", len(report.Anomalies)).
		Int("total_current", report.TotalCurrentSignups).
		Msg("detection run completed")

	return report, nil
}
