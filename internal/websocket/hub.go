// Cohortus - Signup Telemetry Anomaly Detection and Cohort Retention Analytics
// Copyright 2026 Cohortus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cohortus/cohortus

// Package websocket fans freshly computed anomaly reports out to connected
// dashboard clients.
package websocket

import (
	"context"

	"github.com/cohortus/cohortus/internal/logging"
	"github.com/cohortus/cohortus/internal/metrics"
)

// Message types delivered to dashboard clients.
const (
	MessageTypeAnomalyReport = "anomaly_report"
	MessageTypePing          = "ping"
	MessageTypePong          = "pong"
)

// Message is one websocket frame.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
}

// NewHub creates a new Hub. Call Run (typically under supervision) before
// serving connections.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// BroadcastJSON queues a message for every connected client. A full
// broadcast queue drops the message rather than blocking a detection sweep.
func (h *Hub) BroadcastJSON(messageType string, data interface{}) {
	select {
	case h.broadcast <- Message{Type: messageType, Data: data}:
	default:
		logging.Warn().Str("type", messageType).Msg("broadcast queue full, dropping message")
	}
}

// Run processes client lifecycle and broadcast events until ctx is
// canceled, then closes every client and returns ctx.Err(). Designed to run
// as a supervised service.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()

		case client := <-h.register:
			h.clients[client] = true
			metrics.WebSocketClients.Set(float64(len(h.clients)))
			logging.Info().Int("total_clients", len(h.clients)).Msg("websocket client connected")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			metrics.WebSocketClients.Set(float64(len(h.clients)))
			logging.Info().Int("total_clients", len(h.clients)).Msg("websocket client disconnected")

		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

// broadcastToClients delivers one message to every client, dropping clients
// whose send buffer is full (slow consumers must not stall the hub).
func (h *Hub) broadcastToClients(message Message) {
	for client := range h.clients {
		select {
		case client.send <- message:
			metrics.WebSocketMessagesSent.Inc()
		default:
			delete(h.clients, client)
			close(client.send)
			logging.Warn().Msg("dropping slow websocket client")
		}
	}
	metrics.WebSocketClients.Set(float64(len(h.clients)))
}

// shutdown closes all connected clients on hub termination.
func (h *Hub) shutdown(ctx context.Context) {
	closed := len(h.clients)
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
	metrics.WebSocketClients.Set(0)

	reason := "context_canceled"
	if ctx.Err() == context.DeadlineExceeded {
		reason = "context_deadline"
	}
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", reason).
		Int("clients_closed", closed).
		Msg("websocket hub shut down")
}
