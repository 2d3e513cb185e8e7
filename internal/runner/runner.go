// Cohortus - Signup Telemetry Anomaly Detection and Cohort Retention Analytics
// Copyright 2026 Cohortus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cohortus/cohortus

// Package runner drives periodic detection sweeps and pushes fresh anomaly
// reports to the websocket feed.
package runner

import (
	"context"
	"time"

	"github.com/cohortus/cohortus/internal/detection"
	"github.com/cohortus/cohortus/internal/logging"
	"github.com/cohortus/cohortus/internal/websocket"
)

// Broadcaster receives each completed anomaly report. Satisfied by
// *websocket.Hub.
type Broadcaster interface {
	BroadcastJSON(messageType string, data interface{})
}

// Runner executes a detection sweep on a fixed interval. A failed sweep is
// logged and retried on the next tick; only context cancellation stops the
// runner.
type Runner struct {
	detector *detection.Detector
	hub      Broadcaster
	interval time.Duration

	// now is replaceable for tests.
	now func() time.Time
}

// New creates a Runner sweeping at the given interval.
func New(detector *detection.Detector, hub Broadcaster, interval time.Duration) *Runner {
	return &Runner{
		detector: detector,
		hub:      hub,
		interval: interval,
		now:      time.Now,
	}
}

// Serve implements suture.Service. The first sweep runs immediately so a
// freshly started server has a report before the first full interval
// elapses.
func (r *Runner) Serve(ctx context.Context) error {
	logging.Info().Dur("interval", r.interval).Msg("detection runner started")

	r.sweep(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("detection runner stopped")
			return ctx.Err()
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (r *Runner) String() string {
	return "detection-runner"
}

// sweep runs one detection pass and broadcasts the report.
func (r *Runner) sweep(ctx context.Context) {
	report, err := r.detector.Run(ctx, r.now())
	if err != nil {
		logging.Error().Err(err).Msg("detection sweep failed")
		return
	}

	logging.Info().
		Int("anomalies", len(report.Anomalies)).
		Int("total_current_signups", report.TotalCurrentSignups).
		Msg("detection sweep completed")

	if r.hub != nil {
		r.hub.BroadcastJSON(websocket.MessageTypeAnomalyReport, report)
	}
}
