// Copyright (C) 2025 CogniShare Protocol (dev@cognishare.network)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cognishare/cognishare/services/gateway/observability"
	"github.com/cognishare/cognishare/services/payments"
)

var feedUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 4 * 1024,
}

// feedSendBuffer is the per-client queue depth; a client that cannot keep
// up is dropped rather than allowed to stall the engine's attempt fan-out.
const feedSendBuffer = 64

// FeedEvent is one settlement-feed message.
type FeedEvent struct {
	Type    string                  `json:"type"`
	Attempt payments.PaymentAttempt `json:"attempt"`
	SentAt  time.Time               `json:"sent_at"`
}

// FeedHub fans settlement attempts out to websocket subscribers. Wire
// Publish to the engine via Engine.OnAttempt.
//
// FeedHub is safe for concurrent use.
type FeedHub struct {
	mu      sync.Mutex
	clients map[string]chan FeedEvent
	metrics *observability.SettlementMetrics
}

// NewFeedHub returns an empty hub. metrics may be nil.
func NewFeedHub(metrics *observability.SettlementMetrics) *FeedHub {
	return &FeedHub{
		clients: make(map[string]chan FeedEvent),
		metrics: metrics,
	}
}

// Publish queues an attempt for every subscriber. Never blocks: a full
// client queue drops the event for that client only.
func (h *FeedHub) Publish(attempt payments.PaymentAttempt) {
	event := FeedEvent{Type: "payment_attempt", Attempt: attempt, SentAt: time.Now().UTC()}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.clients {
		select {
		case ch <- event:
		default:
			slog.Warn("Settlement feed client too slow, dropping event", "client_id", id)
		}
	}
}

// ClientCount reports the number of connected subscribers.
func (h *FeedHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *FeedHub) subscribe() (string, chan FeedEvent) {
	id := uuid.NewString()
	ch := make(chan FeedEvent, feedSendBuffer)

	h.mu.Lock()
	h.clients[id] = ch
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.ActiveFeedClients.Inc()
	}
	return id, ch
}

func (h *FeedHub) unsubscribe(id string) {
	h.mu.Lock()
	delete(h.clients, id)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.ActiveFeedClients.Dec()
	}
}

// HandleSettlementFeed serves GET /v1/settlements/ws: a live stream of
// payment attempts as they are recorded.
func HandleSettlementFeed(hub *FeedHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := feedUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("Failed to upgrade settlement feed websocket", "error", err)
			return
		}

		id, events := hub.subscribe()
		slog.Info("Settlement feed client connected", "client_id", id)

		defer func() {
			hub.unsubscribe(id)
			_ = ws.Close()
			slog.Info("Settlement feed client disconnected", "client_id", id)
		}()

		// Reader goroutine: we never expect client messages, but reading
		// is what surfaces the close frame.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-done:
				return
			case event := <-events:
				if err := ws.WriteJSON(event); err != nil {
					slog.Warn("Failed to write settlement feed event", "client_id", id, "error", err)
					return
				}
			}
		}
	}
}
