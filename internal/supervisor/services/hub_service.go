// Cohortus - Signup Telemetry Anomaly Detection and Cohort Retention Analytics
// Copyright 2026 Cohortus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cohortus/cohortus

package services

import (
	"context"
)

// ContextHub matches *websocket.Hub's Run method without importing the
// websocket package.
type ContextHub interface {
	Run(ctx context.Context) error
}

// HubService wraps the websocket hub as a supervised service. The hub's
// Run already follows the suture.Service pattern, so the wrapper only adds
// a name for logging.
type HubService struct {
	hub  ContextHub
	name string
}

// NewHubService wraps a websocket hub for supervision.
func NewHubService(hub ContextHub) *HubService {
	return &HubService{
		hub:  hub,
		name: "websocket-hub",
	}
}

// Serve implements suture.Service.
func (s *HubService) Serve(ctx context.Context) error {
	return s.hub.Run(ctx)
}

// String implements fmt.Stringer for supervisor logging.
func (s *HubService) String() string {
	return s.name
}
