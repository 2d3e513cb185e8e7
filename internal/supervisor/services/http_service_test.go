// Cohortus - Signup Telemetry Anomaly Detection and Cohort Retention Analytics
// Copyright 2026 Cohortus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cohortus/cohortus

package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

type fakeServer struct {
	listenErr error
	listening chan struct{}
	shutdown  chan struct{}
}

func newFakeServer(listenErr error) *fakeServer {
	return &fakeServer{
		listenErr: listenErr,
		listening: make(chan struct{}),
		shutdown:  make(chan struct{}),
	}
}

func (f *fakeServer) ListenAndServe() error {
	close(f.listening)
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.shutdown
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(context.Context) error {
	close(f.shutdown)
	return nil
}

func TestHTTPServerServiceGracefulShutdown(t *testing.T) {
	server := newFakeServer(nil)
	svc := NewHTTPServerService(server, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	<-server.listening
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("service did not shut down")
	}
}

func TestHTTPServerServiceStartFailure(t *testing.T) {
	boom := errors.New("bind: address already in use")
	svc := NewHTTPServerService(newFakeServer(boom), time.Second)

	err := svc.Serve(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("Serve returned %v, want wrapped bind error", err)
	}
}

func TestHTTPServerServiceString(t *testing.T) {
	if got := NewHTTPServerService(newFakeServer(nil), 0).String(); got != "http-server" {
		t.Errorf("String() = %q", got)
	}
}
