// Cohortus - Signup Telemetry Anomaly Detection and Cohort Retention Analytics
// Copyright 2026 Cohortus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cohortus/cohortus

package telemetry

import (
	"errors"
	"fmt"

	"github.com/cohortus/cohortus/internal/models"
)

// ErrMalformedResponse indicates the telemetry API returned a body without
// the expected category payload or data array.
var ErrMalformedResponse = errors.New("telemetry: malformed response")

// ErrRateLimited indicates the retry budget for HTTP 429 responses was
// exhausted.
var ErrRateLimited = errors.New("telemetry: rate limit exceeded")

// FetchError reports a failed window fetch. A FetchError fails the whole
// detection or cohort run that requested the window; callers never receive
// partially computed results in its place.
type FetchError struct {
	Category models.Category
	GroupBy  models.GroupBy
	Window   models.Window
	Err      error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("telemetry fetch failed: category=%s group_by=%s window=%s..%s: %v",
		e.Category, e.GroupBy,
		e.Window.Start.Format("2006-01-02"), e.Window.End.Format("2006-01-02"), e.Err)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// newFetchError wraps err with window provenance.
func newFetchError(category models.Category, groupBy models.GroupBy, window models.Window, err error) *FetchError {
	return &FetchError{Category: category, GroupBy: groupBy, Window: window, Err: err}
}
