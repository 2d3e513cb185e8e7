// Cohortus - Signup Telemetry Anomaly Detection and Cohort Retention Analytics
// Copyright 2026 Cohortus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cohortus/cohortus

// Package config loads and validates the Cohortus configuration.
//
// Configuration is layered: struct defaults first, then an optional YAML
// file, then COHORTUS_-prefixed environment variables with the highest
// priority. The detection thresholds default to the values the heuristic
// classifier was tuned with; every threshold is overridable.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for the Cohortus server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Detection DetectionConfig `koanf:"detection"`
	Cohort    CohortConfig    `koanf:"cohort"`
	Runner    RunnerConfig    `koanf:"runner"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port" validate:"min=1,max=65535"`

	// ReadTimeout and WriteTimeout bound request processing.
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// ShutdownTimeout is the grace period for in-flight requests on shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// RateLimitPerMinute caps requests per client IP on the data endpoints.
	RateLimitPerMinute int `koanf:"rate_limit_per_minute" validate:"min=1"`

	// CORSOrigins lists allowed origins for the dashboard frontend.
	CORSOrigins []string `koanf:"cors_origins"`
}

// TelemetryConfig configures the external telemetry API client.
type TelemetryConfig struct {
	// BaseURL is the root of the telemetry API, e.g. "https://telemetry.example.com/v1".
	BaseURL string `koanf:"base_url" validate:"required,url"`

	// APIKey authenticates requests when the deployment requires it.
	APIKey string `koanf:"api_key"`

	// Timeout bounds a single HTTP request.
	Timeout time.Duration `koanf:"timeout"`

	// PageSize is the page_size sent on paginated series requests.
	PageSize int `koanf:"page_size" validate:"min=1,max=1000"`

	// MaxRetries caps retries on HTTP 429 responses.
	MaxRetries int `koanf:"max_retries" validate:"min=0,max=10"`

	// RetryBaseDelay is the first backoff delay; it doubles per retry.
	RetryBaseDelay time.Duration `koanf:"retry_base_delay"`

	// RequestsPerSecond throttles outbound requests to the telemetry API.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
}

// DetectionConfig holds the anomaly detection thresholds and classifier
// constants. Defaults reproduce the tuned heuristic; see DefaultConfig.
type DetectionConfig struct {
	// SpikeRatioThreshold flags a country when percentage change strictly
	// exceeds this value.
	SpikeRatioThreshold float64 `koanf:"spike_ratio_threshold"`

	// MinAbsoluteDelta and MinDeltaRatioThreshold together form the second
	// flagging condition: absolute growth above the delta AND percentage
	// change above the ratio.
	MinAbsoluteDelta       int     `koanf:"min_absolute_delta"`
	MinDeltaRatioThreshold float64 `koanf:"min_delta_ratio_threshold"`

	// BaselineWindowDays is the length of the comparison window preceding
	// the current window.
	BaselineWindowDays int `koanf:"baseline_window_days" validate:"min=1"`

	// CurrentWindowDays is the length of the observation window.
	CurrentWindowDays int `koanf:"current_window_days" validate:"min=1"`

	// Retention tier boundaries for classification.
	HighRetentionThreshold     float64 `koanf:"high_retention_threshold"`
	ShutdownRetentionThreshold float64 `koanf:"shutdown_retention_threshold"`

	// Confidence formula constants.
	ShutdownConfidenceBase float64 `koanf:"shutdown_confidence_base"`
	ShutdownConfidenceCap  float64 `koanf:"shutdown_confidence_cap"`
	ModerateConfidenceBase float64 `koanf:"moderate_confidence_base"`
	BotConfidence          float64 `koanf:"bot_confidence"`
}

// CohortConfig configures the cohort retention engine.
type CohortConfig struct {
	// CountLimit caps output to the most recent N cohorts.
	CountLimit int `koanf:"count_limit" validate:"min=1"`

	// Offsets is the number of tracked retention offsets per cohort,
	// including offset 0.
	Offsets int `koanf:"offsets" validate:"min=1"`

	// HistoryMonths is how far back the monthly series fetches reach.
	HistoryMonths int `koanf:"history_months" validate:"min=1"`
}

// RunnerConfig configures the periodic detection sweep.
type RunnerConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Interval time.Duration `koanf:"interval"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// DefaultConfig returns a Config with all defaults applied. These are the
// values layered under the config file and environment overrides.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8080,
			ReadTimeout:        15 * time.Second,
			WriteTimeout:       30 * time.Second,
			ShutdownTimeout:    10 * time.Second,
			RateLimitPerMinute: 300,
			CORSOrigins:        []string{"*"},
		},
		Telemetry: TelemetryConfig{
			BaseURL:           "http://localhost:9000",
			Timeout:           30 * time.Second,
			PageSize:          500,
			MaxRetries:        5,
			RetryBaseDelay:    time.Second,
			RequestsPerSecond: 10,
		},
		Detection: DetectionConfig{
			SpikeRatioThreshold:        200,
			MinAbsoluteDelta:           50,
			MinDeltaRatioThreshold:     100,
			BaselineWindowDays:         7,
			CurrentWindowDays:          7,
			HighRetentionThreshold:     70,
			ShutdownRetentionThreshold: 50,
			ShutdownConfidenceBase:     50,
			ShutdownConfidenceCap:      95,
			ModerateConfidenceBase:     30,
			BotConfidence:              75,
		},
		Cohort: CohortConfig{
			CountLimit:    12,
			Offsets:       7,
			HistoryMonths: 18,
		},
		Runner: RunnerConfig{
			Enabled:  true,
			Interval: 15 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for inconsistencies beyond what struct
// tags express. Returns the first problem found.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Detection.SpikeRatioThreshold <= 0 {
		return fmt.Errorf("detection.spike_ratio_threshold must be positive, got %v", c.Detection.SpikeRatioThreshold)
	}
	if c.Detection.MinAbsoluteDelta < 0 {
		return fmt.Errorf("detection.min_absolute_delta must not be negative, got %d", c.Detection.MinAbsoluteDelta)
	}
	if c.Detection.HighRetentionThreshold < c.Detection.ShutdownRetentionThreshold {
		return fmt.Errorf("detection.high_retention_threshold (%v) must be >= shutdown_retention_threshold (%v)",
			c.Detection.HighRetentionThreshold, c.Detection.ShutdownRetentionThreshold)
	}
	if c.Cohort.Offsets > c.Cohort.HistoryMonths {
		return fmt.Errorf("cohort.offsets (%d) cannot exceed cohort.history_months (%d)",
			c.Cohort.Offsets, c.Cohort.HistoryMonths)
	}
	if c.Runner.Enabled && c.Runner.Interval < time.Minute {
		return fmt.Errorf("runner.interval must be at least 1m, got %v", c.Runner.Interval)
	}
	return nil
}
