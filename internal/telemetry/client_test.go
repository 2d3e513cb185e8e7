// Cohortus - Signup Telemetry Anomaly Detection and Cohort Retention Analytics
// Copyright 2026 Cohortus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cohortus/cohortus

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cohortus/cohortus/internal/config"
	"github.com/cohortus/cohortus/internal/models"
)

func testWindow() models.Window {
	return models.NewWindow(
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC),
	)
}

func newTestClient(baseURL string) *Client {
	return NewClient(&config.TelemetryConfig{
		BaseURL:           baseURL,
		Timeout:           5 * time.Second,
		PageSize:          2,
		MaxRetries:        3,
		RetryBaseDelay:    time.Millisecond,
		RequestsPerSecond: 1000,
	})
}

func TestCountsByCountrySinglePage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("group_by"); got != "country" {
			t.Errorf("group_by = %q, want country", got)
		}
		if got := r.URL.Query().Get("granularity"); got != "day" {
			t.Errorf("granularity = %q, want day", got)
		}
		fmt.Fprint(w, `{"signup":{"data":[
			{"timeframe":"2024-03-01","country_code":"NG","country_name":"Nigeria","signup_users":120},
			{"timeframe":"2024-03-01","country_code":"IR","country_name":"Iran","signup_users":45}
		],"pagination":{"total_pages":1,"total_records":2}}}`)
	}))
	defer server.Close()

	records, err := newTestClient(server.URL).CountsByCountry(context.Background(), models.CategorySignup, testWindow())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].CountryCode != "NG" || records[0].Count != 120 {
		t.Errorf("unexpected first record: %+v", records[0])
	}
}

func TestFetchConcatenatesAllPages(t *testing.T) {
	pagesServed := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pagesServed++
		page := r.URL.Query().Get("page")
		fmt.Fprintf(w, `{"retained":{"data":[
			{"timeframe":"2024-0%s","country_code":"NG","retained_users":%s0}
		],"pagination":{"total_pages":3,"total_records":3}}}`, page, page)
	}))
	defer server.Close()

	records, err := newTestClient(server.URL).MonthlyCounts(context.Background(), models.CategoryRetained, testWindow())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pagesServed != 3 {
		t.Errorf("expected 3 page requests, got %d", pagesServed)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records after concatenation, got %d", len(records))
	}
	if records[2].Count != 30 {
		t.Errorf("last record count = %d, want 30", records[2].Count)
	}
}

func TestFetchRetriesOn429(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"signup":{"data":[],"pagination":{"total_pages":1,"total_records":0}}}`)
	}))
	defer server.Close()

	records, err := newTestClient(server.URL).CountsByCountry(context.Background(), models.CategorySignup, testWindow())
	if err != nil {
		t.Fatalf("unexpected error after retries: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if len(records) != 0 {
		t.Errorf("expected empty series, got %d records", len(records))
	}
}

func TestFetchRateLimitExhaustion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).CountsByCountry(context.Background(), models.CategorySignup, testWindow())
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *FetchError, got %T", err)
	}
	if fetchErr.Category != models.CategorySignup {
		t.Errorf("fetch error category = %s, want signup", fetchErr.Category)
	}
}

func TestFetchMalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing category key", `{"other":{"data":[]}}`},
		{"missing data array", `{"signup":{"pagination":{"total_pages":1}}}`},
		{"null data array", `{"signup":{"data":null,"pagination":{"total_pages":1}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).CountsByCountry(context.Background(), models.CategorySignup, testWindow())
			if !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("expected ErrMalformedResponse, got %v", err)
			}
		})
	}
}

func TestFetchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).CountsByCountry(context.Background(), models.CategorySignup, testWindow())
	if err == nil {
		t.Fatal("expected error on HTTP 500")
	}
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *FetchError, got %T", err)
	}
}

func TestFetchContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(server.URL).CountsByCountry(ctx, models.CategorySignup, testWindow())
	if err == nil {
		t.Fatal("expected error on canceled context")
	}
}
