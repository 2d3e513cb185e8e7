// Cohortus - Signup Telemetry Anomaly Detection and Cohort Retention Analytics
// Copyright 2026 Cohortus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cohortus/cohortus

package validation

import (
	"strings"
	"testing"
)

type sampleRequest struct {
	StartDate string `validate:"omitempty,isodate"`
	Period    string `validate:"omitempty,monthperiod"`
	Country   string `validate:"omitempty,countrycode"`
	Limit     int    `validate:"min=0,max=100"`
}

func TestValidateStructValid(t *testing.T) {
	req := sampleRequest{
		StartDate: "2024-03-01",
		Period:    "2024-03",
		Country:   "NG",
		Limit:     10,
	}
	if err := ValidateStruct(&req); err != nil {
		t.Errorf("expected valid request, got: %v", err)
	}

	// All-optional fields absent is also valid.
	if err := ValidateStruct(&sampleRequest{}); err != nil {
		t.Errorf("expected empty request to validate, got: %v", err)
	}
}

func TestValidateStructInvalid(t *testing.T) {
	tests := []struct {
		name    string
		req     sampleRequest
		wantMsg string
	}{
		{"bad date", sampleRequest{StartDate: "03/01/2024"}, "YYYY-MM-DD"},
		{"bad period", sampleRequest{Period: "2024-3"}, "YYYY-MM"},
		{"bad country", sampleRequest{Country: "NGA"}, "two-letter"},
		{"limit too high", sampleRequest{Limit: 500}, "at most"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.req)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestValidateStructCollectsAllFields(t *testing.T) {
	req := sampleRequest{StartDate: "bad", Country: "bad", Limit: -1}
	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(err.Fields()) != 3 {
		t.Errorf("expected 3 failing fields, got %d (%v)", len(err.Fields()), err.Fields())
	}
}
