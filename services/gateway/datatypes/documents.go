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

	"github.com/cognishare/cognishare/services/payments"
)

// MaxDocumentLength bounds one ingested document.
const MaxDocumentLength = 1 << 20

// IngestDocumentRequest is the body of POST /v1/documents.
type IngestDocumentRequest struct {
	Text         string `json:"text"`
	AuthorWallet string `json:"author_wallet"`
	SourceFile   string `json:"source_file"`
}

// EnsureDefaults normalizes the request.
func (r *IngestDocumentRequest) EnsureDefaults() {
	r.Text = strings.TrimSpace(r.Text)
	r.AuthorWallet = strings.TrimSpace(r.AuthorWallet)
	if r.SourceFile = strings.TrimSpace(r.SourceFile); r.SourceFile == "" {
		r.SourceFile = "untitled.txt"
	}
}

// Validate rejects unusable documents. The wallet must be payable, or the
// ingested chunks could never be settled.
func (r *IngestDocumentRequest) Validate() error {
	if r.Text == "" {
		return fmt.Errorf("text must not be empty")
	}
	if len(r.Text) > MaxDocumentLength {
		return fmt.Errorf("text exceeds %d bytes", MaxDocumentLength)
	}
	if err := payments.ValidateWallet(r.AuthorWallet); err != nil {
		return fmt.Errorf("author_wallet: %w", err)
	}
	return nil
}

// ServiceFeeInfo reports the outcome of the optional per-ingest
// data-service charge.
type ServiceFeeInfo struct {
	Settled   bool    `json:"settled"`
	AmountCRO float64 `json:"amount_cro,omitempty"`
	TxHash    string  `json:"tx_hash,omitempty"`
}

// IngestDocumentResponse is the success body of POST /v1/documents.
type IngestDocumentResponse struct {
	SourceFile   string          `json:"source_file"`
	AuthorWallet string          `json:"author_wallet"`
	ChunksStored int             `json:"chunks_stored"`
	ServiceFee   *ServiceFeeInfo `json:"service_fee,omitempty"`
}
