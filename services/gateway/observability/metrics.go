// Copyright (C) 2025 CogniShare Protocol (dev@cognishare.network)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the gateway.
//
// Metrics cover the pay-before-answer pipeline: query outcomes, payment
// attempts by path and status, total CRO routed to authors, and settlement
// latency. Exposed via /metrics for Prometheus scraping.
//
// All operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cognishare/cognishare/services/payments"
)

const metricsNamespace = "cognishare"

// SettlementMetrics holds the gateway's Prometheus metrics. Initialize once
// at startup via NewSettlementMetrics().
type SettlementMetrics struct {
	// QueriesTotal counts pipeline outcomes.
	// Labels: outcome (answered, denied, invalid, error)
	QueriesTotal *prometheus.CounterVec

	// PaymentAttemptsTotal counts settlement attempts.
	// Labels: status (sent, failed), path (contract, direct, simulated)
	PaymentAttemptsTotal *prometheus.CounterVec

	// PaidCROTotal accumulates compensation routed to authors in CRO.
	// Labels: simulated (true, false)
	PaidCROTotal *prometheus.CounterVec

	// SettlementDurationSeconds measures full settlement batch latency.
	SettlementDurationSeconds prometheus.Histogram

	// ActiveFeedClients tracks connected settlement-feed websockets.
	ActiveFeedClients prometheus.Gauge
}

// NewSettlementMetrics registers the gateway metrics on the given registerer
// (use prometheus.DefaultRegisterer in main, a fresh registry in tests).
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	factory := promauto.With(reg)
	return &SettlementMetrics{
		QueriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "gateway",
			Name:      "queries_total",
			Help:      "Query pipeline outcomes.",
		}, []string{"outcome"}),
		PaymentAttemptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "settlement",
			Name:      "payment_attempts_total",
			Help:      "Payment attempts by status and submission path.",
		}, []string{"status", "path"}),
		PaidCROTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "settlement",
			Name:      "paid_cro_total",
			Help:      "Total CRO routed to authors.",
		}, []string{"simulated"}),
		SettlementDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "settlement",
			Name:      "duration_seconds",
			Help:      "Settlement batch latency.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		ActiveFeedClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "gateway",
			Name:      "active_feed_clients",
			Help:      "Connected settlement-feed websocket clients.",
		}),
	}
}

// ObserveAttempt records one payment attempt. Wire it to the engine via
// Engine.OnAttempt.
func (m *SettlementMetrics) ObserveAttempt(attempt payments.PaymentAttempt) {
	path := string(attempt.Path)
	if path == "" {
		// Failed attempts never took a path.
		path = "none"
	}
	m.PaymentAttemptsTotal.WithLabelValues(string(attempt.Status), path).Inc()
}

// ObserveBatch records a completed settlement batch.
func (m *SettlementMetrics) ObserveBatch(result *payments.SettlementResult, seconds float64) {
	simulated := "false"
	if result.Simulated {
		simulated = "true"
	}
	m.PaidCROTotal.WithLabelValues(simulated).Add(result.TotalPaidCRO)
	m.SettlementDurationSeconds.Observe(seconds)
}
