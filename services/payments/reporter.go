// Copyright (C) 2025 CogniShare Protocol (dev@cognishare.network)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package payments

import "sync"

// StatusReport is the read-only operational snapshot exposed at
// /v1/payments/status.
type StatusReport struct {
	Mode       string      `json:"mode"`
	Backend    BackendKind `json:"backend"`
	Reachable  bool        `json:"reachable"`
	BalanceCRO float64     `json:"balance_cro"`
}

// AnalyticsReport aggregates what the engine has settled over the process
// lifetime.
type AnalyticsReport struct {
	TotalPaidCRO   float64 `json:"total_paid_cro"`
	TotalCitations int64   `json:"total_citations"`
	ActiveAuthors  int     `json:"active_authors"`
	Settlements    int64   `json:"settlements"`
	FailedAttempts int64   `json:"failed_attempts"`
}

// Reporter accumulates settlement analytics in memory. Counters reset on
// restart; durable accounting lives on chain and is out of scope here.
//
// Reporter is safe for concurrent use.
type Reporter struct {
	mu             sync.Mutex
	totalPaidCRO   float64
	totalCitations int64
	settlements    int64
	failedAttempts int64
	authors        map[string]struct{}
}

// NewReporter returns an empty reporter.
func NewReporter() *Reporter {
	return &Reporter{authors: make(map[string]struct{})}
}

// RecordBatch folds one settlement result into the running totals. Only
// sent attempts contribute to paid amounts, citations, and the active
// author set.
func (r *Reporter) RecordBatch(result *SettlementResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.settlements++
	for _, a := range result.Attempts {
		if a.Status != AttemptSent {
			r.failedAttempts++
			continue
		}
		r.totalPaidCRO += a.AmountCRO
		r.totalCitations += int64(a.CitationCount)
		r.authors[a.AuthorWallet] = struct{}{}
	}
}

// Analytics returns a snapshot of the running totals.
func (r *Reporter) Analytics() AnalyticsReport {
	r.mu.Lock()
	defer r.mu.Unlock()

	return AnalyticsReport{
		TotalPaidCRO:   r.totalPaidCRO,
		TotalCitations: r.totalCitations,
		ActiveAuthors:  len(r.authors),
		Settlements:    r.settlements,
		FailedAttempts: r.failedAttempts,
	}
}
