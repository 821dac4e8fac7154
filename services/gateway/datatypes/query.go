// Copyright (C) 2025 CogniShare Protocol (dev@cognishare.network)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/cognishare/cognishare/services/payments"
)

const (
	// MaxMessageLength bounds a query message.
	MaxMessageLength = 4000

	// MaxTopK bounds retrieval depth per request.
	MaxTopK = 10
)

// QueryRequest is the body of POST /v1/query.
type QueryRequest struct {
	Message   string `json:"message"`
	TopK      int    `json:"top_k,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// EnsureDefaults fills the optional fields.
func (r *QueryRequest) EnsureDefaults() {
	r.Message = strings.TrimSpace(r.Message)
	if r.RequestID == "" {
		r.RequestID = uuid.NewString()
	}
	if r.TopK <= 0 {
		r.TopK = 3
	}
}

// Validate rejects requests that should never reach retrieval.
func (r *QueryRequest) Validate() error {
	if r.Message == "" {
		return fmt.Errorf("message must not be empty")
	}
	if len(r.Message) > MaxMessageLength {
		return fmt.Errorf("message exceeds %d characters", MaxMessageLength)
	}
	if r.TopK > MaxTopK {
		return fmt.Errorf("top_k must be at most %d", MaxTopK)
	}
	return nil
}

// SourceInfo is one cited source in a query response.
type SourceInfo struct {
	AuthorWallet string  `json:"author_wallet"`
	SourceFile   string  `json:"source_file"`
	Excerpt      string  `json:"excerpt"`
	Score        float64 `json:"score"`
}

// AttemptInfo is one payment attempt as exposed over the API, including the
// explorer link for real transactions.
type AttemptInfo struct {
	AuthorWallet  string  `json:"author_wallet"`
	AmountCRO     float64 `json:"amount_cro"`
	CitationCount int     `json:"citation_count"`
	Status        string  `json:"status"`
	TxHash        string  `json:"tx_hash,omitempty"`
	ExplorerURL   string  `json:"explorer_url,omitempty"`
	Path          string  `json:"path,omitempty"`
	Error         string  `json:"error,omitempty"`
}

// SettlementInfo summarizes the settlement that preceded (or denied) an
// answer.
type SettlementInfo struct {
	OverallSuccess    bool          `json:"overall_success"`
	TotalPaidCRO      float64       `json:"total_paid_cro"`
	UniqueAuthorsPaid int           `json:"unique_authors_paid"`
	SkippedCitations  int           `json:"skipped_citations"`
	Simulated         bool          `json:"simulated"`
	Attempts          []AttemptInfo `json:"attempts"`
}

// QueryResponse is the success body of POST /v1/query.
type QueryResponse struct {
	RequestID  string         `json:"request_id"`
	Answer     string         `json:"answer"`
	Sources    []SourceInfo   `json:"sources"`
	Settlement SettlementInfo `json:"settlement"`

	// Provenance is "settled" for real compensation, "simulated" otherwise.
	Provenance string `json:"provenance"`
}

// DenialResponse is the 402 body when settlement blocks generation.
type DenialResponse struct {
	RequestID  string         `json:"request_id"`
	Error      string         `json:"error"`
	Reason     string         `json:"reason"`
	Settlement SettlementInfo `json:"settlement"`
}

// NewSettlementInfo maps an engine result onto the API shape.
func NewSettlementInfo(result *payments.SettlementResult, skipped int, network string) SettlementInfo {
	info := SettlementInfo{
		OverallSuccess:    result.OverallSuccess,
		TotalPaidCRO:      result.TotalPaidCRO,
		UniqueAuthorsPaid: result.UniqueAuthorsPaid,
		SkippedCitations:  skipped,
		Simulated:         result.Simulated,
		Attempts:          make([]AttemptInfo, 0, len(result.Attempts)),
	}
	for _, a := range result.Attempts {
		attempt := AttemptInfo{
			AuthorWallet:  a.AuthorWallet,
			AmountCRO:     a.AmountCRO,
			CitationCount: a.CitationCount,
			Status:        string(a.Status),
			TxHash:        a.TxHash,
			Path:          string(a.Path),
			Error:         a.Error,
		}
		if a.TxHash != "" && a.Path != payments.PathSimulated {
			attempt.ExplorerURL = payments.ExplorerTxURL(network, a.TxHash)
		}
		info.Attempts = append(info.Attempts, attempt)
	}
	return info
}
