// Cohortus - Signup Telemetry Anomaly Detection and Cohort Retention Analytics
// Copyright 2026 Cohortus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cohortus/cohortus

package telemetry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/cohortus/cohortus/internal/config"
	"github.com/cohortus/cohortus/internal/logging"
	"github.com/cohortus/cohortus/internal/metrics"
	"github.com/cohortus/cohortus/internal/models"
)

// maxErrorBodySize limits how much of an error response body is read for
// diagnostics. Prevents unbounded allocation on large error pages.
const maxErrorBodySize = 64 * 1024

// Client is the HTTP implementation of Source.
//
// Request flow per window: one GET per page, rate limited, with exponential
// backoff on HTTP 429 (1s, 2s, 4s, 8s, 16s), until pagination.total_pages is
// exhausted. Pages are concatenated; a failure on any page fails the fetch.
//
// Thread safety: safe for concurrent use. Each request builds its own
// http.Request; the limiter serializes outbound pressure.
type Client struct {
	baseURL        string
	apiKey         string
	client         *http.Client
	pageSize       int
	maxRetries     int
	retryBaseDelay time.Duration
	limiter        *rate.Limiter
}

// NewClient creates a telemetry API client from configuration.
func NewClient(cfg *config.TelemetryConfig) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	return &Client{
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		client:         &http.Client{Timeout: cfg.Timeout},
		pageSize:       cfg.PageSize,
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: cfg.RetryBaseDelay,
		limiter:        rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// seriesPayload is the per-category body of a telemetry response.
type seriesPayload struct {
	Data       []seriesRow `json:"data"`
	Pagination struct {
		TotalPages   int `json:"total_pages"`
		TotalRecords int `json:"total_records"`
	} `json:"pagination"`
	// hasData distinguishes a present-but-empty data array from a missing
	// one after decoding. Set during decode.
	hasData bool
}

// seriesRow is one raw API row before shaping into a CountRecord.
type seriesRow struct {
	Timeframe   string `json:"timeframe"`
	CountryCode string `json:"country_code"`
	CountryName string `json:"country_name"`
	// The count column is named after the category.
	SignupUsers   *int `json:"signup_users"`
	RetainedUsers *int `json:"retained_users"`
}

// count returns the row's count for the given category, or 0 when the
// column is absent.
func (r *seriesRow) count(category models.Category) int {
	switch category {
	case models.CategorySignup:
		if r.SignupUsers != nil {
			return *r.SignupUsers
		}
	case models.CategoryRetained:
		if r.RetainedUsers != nil {
			return *r.RetainedUsers
		}
	}
	return 0
}

// CountsByCountry implements Source.
func (c *Client) CountsByCountry(ctx context.Context, category models.Category, window models.Window) ([]models.CountRecord, error) {
	return c.fetchSeries(ctx, category, window, models.GranularityDay, models.GroupByCountry)
}

// MonthlyCounts implements Source.
func (c *Client) MonthlyCounts(ctx context.Context, category models.Category, window models.Window) ([]models.CountRecord, error) {
	return c.fetchSeries(ctx, category, window, models.GranularityMonth, models.GroupByDate)
}

// fetchSeries pulls every page of one series and concatenates the rows.
func (c *Client) fetchSeries(ctx context.Context, category models.Category, window models.Window,
	granularity models.Granularity, groupBy models.GroupBy) ([]models.CountRecord, error) {

	start := time.Now()
	var records []models.CountRecord

	page := 1
	for {
		payload, err := c.fetchPage(ctx, category, window, granularity, groupBy, page)
		if err != nil {
			metrics.TelemetryFetchErrors.WithLabelValues(string(category), "request").Inc()
			return nil, newFetchError(category, groupBy, window, err)
		}
		if !payload.hasData {
			metrics.TelemetryFetchErrors.WithLabelValues(string(category), "malformed").Inc()
			return nil, newFetchError(category, groupBy, window, ErrMalformedResponse)
		}
		metrics.TelemetryPagesFetched.WithLabelValues(string(category)).Inc()

		for i := range payload.Data {
			row := &payload.Data[i]
			records = append(records, models.CountRecord{
				Period:      row.Timeframe,
				CountryCode: row.CountryCode,
				CountryName: row.CountryName,
				Count:       row.count(category),
			})
		}

		if page >= payload.Pagination.TotalPages || payload.Pagination.TotalPages == 0 {
			break
		}
		page++
	}

	metrics.TelemetryFetchDuration.WithLabelValues(string(category), string(groupBy)).
		Observe(time.Since(start).Seconds())
	logging.Ctx(ctx).Debug().
		Str("category", string(category)).
		Str("group_by", string(groupBy)).
		Int("pages", page).
		Int("records", len(records)).
		Msg("telemetry series fetched")

	return records, nil
}

// fetchPage retrieves and decodes one page of a series.
func (c *Client) fetchPage(ctx context.Context, category models.Category, window models.Window,
	granularity models.Granularity, groupBy models.GroupBy, page int) (*seriesPayload, error) {

	params := url.Values{}
	params.Set("start_date", window.Start.Format("2006-01-02"))
	params.Set("end_date", window.End.Format("2006-01-02"))
	params.Set("granularity", string(granularity))
	params.Set("group_by", string(groupBy))
	params.Set("page", strconv.Itoa(page))
	params.Set("page_size", strconv.Itoa(c.pageSize))
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}

	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, category, params.Encode())

	resp, err := c.doRequestWithRateLimit(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := readBodyForError(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	// The payload is keyed by category name: {"signup": {"data": [...], ...}}.
	var envelope map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	raw, ok := envelope[string(category)]
	if !ok {
		return &seriesPayload{}, nil
	}

	// Decode in two steps so a missing data array is distinguishable from
	// an empty one.
	var probe struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", category, err)
	}

	payload := &seriesPayload{}
	if err := json.Unmarshal(raw, payload); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", category, err)
	}
	payload.hasData = len(probe.Data) > 0 && string(probe.Data) != "null"

	return payload, nil
}

// doRequestWithRateLimit performs a GET with outbound throttling and
// exponential backoff on HTTP 429. The context cancels backoff waits.
func (c *Client) doRequestWithRateLimit(ctx context.Context, reqURL string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		_ = resp.Body.Close()

		if attempt == c.maxRetries {
			lastErr = fmt.Errorf("%w after %d retries", ErrRateLimited, c.maxRetries)
			break
		}

		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := time.ParseDuration(retryAfter + "s"); err == nil {
				delay = seconds
			}
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// readBodyForError reads at most maxErrorBodySize bytes for diagnostics.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("... (truncated)")...)
	}
	return body
}
