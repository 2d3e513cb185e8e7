// Cohortus - Signup Telemetry Anomaly Detection and Cohort Retention Analytics
// Copyright 2026 Cohortus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cohortus/cohortus

// Package main is the entry point for the Cohortus server.
//
// Cohortus watches a service's signup telemetry for country-level anomalies
// that precede shutdowns, spam waves, and migration events, and computes
// monthly cohort retention for the operations dashboard.
//
// The server initializes components in the following order:
//
//  1. Configuration: layered loading via Koanf v2 (defaults, YAML file,
//     COHORTUS_ environment variables)
//  2. Telemetry client: rate-limited, retrying HTTP client behind a
//     circuit breaker
//  3. Detection and cohort engines over the telemetry source
//  4. WebSocket hub for real-time anomaly feeds
//  5. Periodic detection runner
//  6. HTTP server: REST API, health probes, Prometheus metrics
//
// All long-running components run under a suture supervision tree; SIGINT
// and SIGTERM trigger graceful shutdown with a bounded drain period.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cohortus/cohortus/internal/api"
	"github.com/cohortus/cohortus/internal/cohort"
	"github.com/cohortus/cohortus/internal/config"
	"github.com/cohortus/cohortus/internal/detection"
	"github.com/cohortus/cohortus/internal/logging"
	"github.com/cohortus/cohortus/internal/runner"
	"github.com/cohortus/cohortus/internal/supervisor"
	"github.com/cohortus/cohortus/internal/supervisor/services"
	"github.com/cohortus/cohortus/internal/telemetry"
	"github.com/cohortus/cohortus/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logging.Info().
		Str("telemetry_base_url", cfg.Telemetry.BaseURL).
		Msg("starting cohortus server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry source: HTTP client wrapped in a circuit breaker shared by
	// both engines, so one flapping upstream trips a single breaker.
	source := telemetry.NewBreakerSource(telemetry.NewClient(&cfg.Telemetry))

	detector := detection.NewDetector(source, &cfg.Detection)
	engine := cohort.NewEngine(source, &cfg.Cohort)

	hub := websocket.NewHub()

	handler := api.NewHandler(detector, engine, hub)
	router := api.NewRouter(handler, &api.ChiMiddlewareConfig{
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
		CORSAllowedMethods: []string{"GET", "OPTIONS"},
		CORSAllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		CORSMaxAge:         86400,
		RateLimitRequests:  cfg.Server.RateLimitPerMinute,
		RateLimitWindow:    time.Minute,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree := supervisor.NewTree(logging.NewSlogLogger(), treeCfg)

	tree.AddMessagingService(services.NewHubService(hub))
	if cfg.Runner.Enabled {
		tree.AddMessagingService(runner.New(detector, hub, cfg.Runner.Interval))
		logging.Info().Dur("interval", cfg.Runner.Interval).Msg("detection runner enabled")
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}

	// Drain the error channel until the supervisor finishes.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("service failed to stop within timeout")
	}

	logging.Info().Msg("server stopped gracefully")
}
