// Cohortus - Signup Telemetry Anomaly Detection and Cohort Retention Analytics
// Copyright 2026 Cohortus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cohortus/cohortus

// Package validation provides struct validation using go-playground/validator
// v10 with custom validators for the query parameters the API accepts.
//
//	type AnomaliesRequest struct {
//	    StartDate string `validate:"omitempty,isodate"`
//	    Country   string `validate:"omitempty,countrycode"`
//	}
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator returns the singleton validator, registering custom
// validators on first use. The validator caches struct metadata, so reusing
// one instance matters for handler throughput.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// isodate: YYYY-MM-DD
		_ = validate.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
			_, err := time.Parse("2006-01-02", fl.Field().String())
			return err == nil
		})

		// monthperiod: YYYY-MM
		_ = validate.RegisterValidation("monthperiod", func(fl validator.FieldLevel) bool {
			_, err := time.Parse("2006-01", fl.Field().String())
			return err == nil
		})

		// countrycode: two ASCII letters
		_ = validate.RegisterValidation("countrycode", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			if len(s) != 2 {
				return false
			}
			for i := 0; i < 2; i++ {
				c := s[i]
				if (c < 'A' || c > 'Z') && (c < 'a' || c > 'z') {
					return false
				}
			}
			return true
		})
	})
	return validate
}

// RequestValidationError aggregates per-field validation failures.
type RequestValidationError struct {
	fields   []string
	messages []string
}

// Fields returns the struct field names that failed validation.
func (e *RequestValidationError) Fields() []string {
	return e.fields
}

// Error implements the error interface.
func (e *RequestValidationError) Error() string {
	if len(e.messages) == 0 {
		return "validation failed"
	}
	return strings.Join(e.messages, "; ")
}

// ValidateStruct validates s and returns a *RequestValidationError describing
// every failing field, or nil when s is valid.
func ValidateStruct(s interface{}) *RequestValidationError {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &RequestValidationError{messages: []string{err.Error()}}
	}

	out := &RequestValidationError{}
	for _, fe := range verrs {
		out.fields = append(out.fields, fe.Field())
		out.messages = append(out.messages, fieldMessage(fe))
	}
	return out
}

// fieldMessage renders one validation failure as a user-facing message.
func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "isodate":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", fe.Field())
	case "monthperiod":
		return fmt.Sprintf("%s must be a month in YYYY-MM format", fe.Field())
	case "countrycode":
		return fmt.Sprintf("%s must be a two-letter country code", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
