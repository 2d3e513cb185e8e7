// Cohortus - Signup Telemetry Anomaly Detection and Cohort Retention Analytics
// Copyright 2026 Cohortus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cohortus/cohortus

package cohort

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

// Result is the output of one cohort analysis run.
type Result struct {
	Cohorts     []Cohort         `json:"cohorts"`
	Curves      []RetentionCurve `json:"curves"`
	Window      models.Window    `json:"window"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// Engine orchestrates cohort analysis: it fetches the monthly signup and
// retained series concurrently and feeds the pure builder. As with
// detection, a failed fetch fails the whole run; partial input is not
// meaningful.
type Engine struct {
	source telemetry.Source
	cfg    *config.CohortConfig
}

// NewEngine creates a cohort Engine over the given source.
func NewEngine(source telemetry.Source, cfg *config.CohortConfig) *Engine {
	return &Engine{source: source, cfg: cfg}
}

// Window computes the monthly history window ending at now's month.
func (e *Engine) Window(now time.Time) models.Window {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return models.NewWindow(monthStart.AddDate(0, -(e.cfg.HistoryMonths-1), 0), now)
}

// Run executes one cohort analysis anchored at now.
func (e *Engine) Run(ctx context.Context, now time.Time) (*Result, error) {
	window := e.Window(now)

	var signups, retained []models.CountRecord

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		signups, err = e.source.MonthlyCounts(gctx, models.CategorySignup, window)
		return err
	})
	g.Go(func() error {
		var err error
		retained, err = e.source.MonthlyCounts(gctx, models.CategoryRetained, window)
		return err
	})
	if err := g.Wait(); err != nil {
		metrics.CohortRuns.WithLabelValues("error").Inc()
		logging.Ctx(ctx).Error().Err(err).Msg("cohort run aborted: series fetch failed")
		return nil, err
	}

	cohorts := BuildCohorts(signups, retained, e.cfg)
	result := &Result{
		Cohorts:     cohorts,
		Curves:      ProjectCurves(cohorts, 0),
		Window:      window,
		GeneratedAt: now,
	}

	metrics.CohortRuns.WithLabelValues("success").Inc()
	logging.Ctx(ctx).Info().
		Int("cohorts", len(cohorts)).
		Msg("cohort run completed")

	return result, nil
}
