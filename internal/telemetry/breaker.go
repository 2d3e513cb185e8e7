// Cohortus - Signup Telemetry Anomaly Detection and Cohort Retention Analytics
// Copyright 2026 Cohortus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cohortus/cohortus

package telemetry

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/cohortus/cohortus/internal/logging"
	"github.com/cohortus/cohortus/internal/metrics"
	"github.com/cohortus/cohortus/internal/models"
)

// BreakerSource wraps a Source with a circuit breaker so a failing or slow
// telemetry API cannot stall every detection sweep.
//
// The breaker uses real time for its interval and timeout; tests should
// exercise the wrapped Source directly.
type BreakerSource struct {
	source Source
	cb     *gobreaker.CircuitBreaker[[]models.CountRecord]
	name   string
}

// NewBreakerSource wraps source with a circuit breaker.
//
// Configuration:
//   - max 3 concurrent requests in half-open state
//   - 1 minute measurement window in closed state
//   - 2 minute open period before half-open probing
//   - opens at >= 60% failure rate with minimum 10 requests
func NewBreakerSource(source Source) *BreakerSource {
	const cbName = "telemetry-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]models.CountRecord](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			if failureRatio >= 0.6 {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("opening telemetry circuit")
				return true
			}
			return false
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("telemetry circuit state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &BreakerSource{source: source, cb: cb, name: cbName}
}

// CountsByCountry implements Source.
func (b *BreakerSource) CountsByCountry(ctx context.Context, category models.Category, window models.Window) ([]models.CountRecord, error) {
	return b.execute(func() ([]models.CountRecord, error) {
		return b.source.CountsByCountry(ctx, category, window)
	})
}

// MonthlyCounts implements Source.
func (b *BreakerSource) MonthlyCounts(ctx context.Context, category models.Category, window models.Window) ([]models.CountRecord, error) {
	return b.execute(func() ([]models.CountRecord, error) {
		return b.source.MonthlyCounts(ctx, category, window)
	})
}

// execute runs fn through the breaker and records request outcomes.
func (b *BreakerSource) execute(fn func() ([]models.CountRecord, error)) ([]models.CountRecord, error) {
	result, err := b.cb.Execute(fn)
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		logging.Warn().Err(err).Msg("telemetry request rejected by circuit breaker")
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
	}
	return result, err
}

func stateToString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
