// Copyright (C) 2025 CogniShare Protocol (dev@cognishare.network)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package payments implements the citation-to-payment settlement engine.
//
// This package is the heart of the pay-before-answer (x402) flow. It takes
// the citation records produced by the retrieval layer, aggregates them per
// author, pays each author over an EVM backend, and decides whether answer
// generation may proceed.
//
// The package is organized around five collaborators:
//   - Aggregator (aggregate.go): dedupe + per-author compensation amounts
//   - PaymentBackend (backend.go, chain.go): direct transfer or registry
//     contract submission, plus a simulated backend for offline demos
//   - Engine (engine.go): drives one settlement batch, partial-failure safe
//   - Gate (gate.go): the all-or-nothing answer gating decision
//   - Reporter (reporter.go): process-lifetime payment analytics
//
// # Thread Safety
//
// Engine serializes settlement batches internally; all other exported types
// document their own concurrency contracts.
package payments

import (
	"errors"
	"fmt"
	"time"
)

// asErr is a typed errors.As shorthand used by the IsXxx helpers below.
func asErr[T error](err error, target *T) bool {
	return errors.As(err, target)
}

// =============================================================================
// Operating Mode
// =============================================================================

// Mode is the process-wide settlement operating mode.
//
// The mode is decided once when the engine is bootstrapped, by probing RPC
// connectivity and signing-credential presence. The only legal runtime
// transition is Enforcing -> Simulated, taken when the engine observes total
// backend unreachability; recovery back to Enforcing requires a restart.
type Mode int

const (
	// ModeEnforcing means a real backend is reachable: a fully failed batch
	// blocks answer generation.
	ModeEnforcing Mode = iota

	// ModeSimulated means no real backend is available. Settlements are
	// reported with fabricated transaction references and always succeed,
	// so demonstration flows keep working.
	ModeSimulated
)

// String returns the wire name of the mode.
func (m Mode) String() string {
	if m == ModeSimulated {
		return "simulated"
	}
	return "enforcing"
}

// BackendKind identifies which submission strategy a backend uses.
type BackendKind string

const (
	// BackendDirect submits raw value transfers. Cheapest, no on-chain
	// attribution record.
	BackendDirect BackendKind = "direct"

	// BackendContract invokes the citation registry contract, producing a
	// queryable on-chain citation event.
	BackendContract BackendKind = "contract"

	// BackendSimulated fabricates transaction references locally.
	BackendSimulated BackendKind = "simulated"
)

// SubmissionPath records which route an individual attempt actually took.
// A contract-kind backend can still take the direct path for a single
// attempt when the contract call fails to build.
type SubmissionPath string

const (
	PathContract  SubmissionPath = "contract"
	PathDirect    SubmissionPath = "direct"
	PathSimulated SubmissionPath = "simulated"
)

// =============================================================================
// Core Data Model
// =============================================================================

// CitationRecord is one retrieved knowledge fragment attributed to an author.
// Records are produced by the retrieval layer and consumed once per query;
// the settlement engine treats them as opaque beyond these three fields.
type CitationRecord struct {
	// AuthorWallet is the author's EVM address (0x + 40 hex chars).
	AuthorWallet string `json:"author_wallet"`

	// Text is the cited excerpt.
	Text string `json:"text"`

	// Score is the retrieval relevance score, unitless.
	Score float64 `json:"score"`
}

// AuthorPaymentAggregate is one payable row per distinct valid author within
// a settlement batch.
type AuthorPaymentAggregate struct {
	// AuthorWallet is the canonical (EIP-55 checksummed) address.
	AuthorWallet string `json:"author_wallet"`

	// CitationCount is the number of citations attributed to the author in
	// this batch. Always >= 1.
	CitationCount int `json:"citation_count"`

	// TotalAmountCRO is the compensation owed: rate * CitationCount.
	TotalAmountCRO float64 `json:"total_amount_cro"`

	// ContentDigest is a deterministic sha256 fingerprint over the author
	// wallet and the truncated concatenation of the cited excerpts, hex
	// encoded with a 0x prefix. Identical inputs always produce identical
	// digests, which is what makes replay detection possible downstream.
	ContentDigest string `json:"content_digest"`
}

// AttemptStatus is the terminal state of one payment attempt.
type AttemptStatus string

const (
	AttemptSent   AttemptStatus = "sent"
	AttemptFailed AttemptStatus = "failed"
)

// PaymentAttempt is one per-author compensation submission within a batch.
// Attempts are immutable once recorded and live only for the duration of the
// settlement call; durability is an external collaborator's concern.
type PaymentAttempt struct {
	AuthorWallet string        `json:"author_wallet"`
	AmountCRO    float64       `json:"amount_cro"`
	Status       AttemptStatus `json:"status"`

	// CitationCount is how many citations this attempt compensates.
	CitationCount int `json:"citation_count"`

	// TxHash is the backend transaction reference. Set only when sent.
	TxHash string `json:"tx_hash,omitempty"`

	// Path records which submission route was taken.
	Path SubmissionPath `json:"path,omitempty"`

	// Error carries failure detail. Set only when failed.
	Error string `json:"error,omitempty"`

	// SubmittedAt is when the attempt was recorded.
	SubmittedAt time.Time `json:"submitted_at"`
}

// SettlementResult is the batch-level outcome of one settlement call.
//
// The central contract of the whole system lives here: OverallSuccess is
// true iff at least one attempt was sent (at-least-one-success, not
// all-success), except in simulated mode where it is always true.
type SettlementResult struct {
	OverallSuccess bool `json:"overall_success"`

	// Attempts are ordered exactly as the input aggregates were ordered.
	Attempts []PaymentAttempt `json:"attempts"`

	// TotalPaidCRO sums amounts of sent attempts only.
	TotalPaidCRO float64 `json:"total_paid_cro"`

	// UniqueAuthorsPaid counts sent attempts.
	UniqueAuthorsPaid int `json:"unique_authors_paid"`

	// BackendMode is the provenance tag: direct, contract, or simulated.
	BackendMode BackendKind `json:"backend_mode"`

	// Simulated is true when the result was not backed by real value
	// transfer. Callers must surface it, never hide it.
	Simulated bool `json:"simulated"`
}

// SentCount returns the number of attempts with status sent.
func (r *SettlementResult) SentCount() int {
	n := 0
	for _, a := range r.Attempts {
		if a.Status == AttemptSent {
			n++
		}
	}
	return n
}

// =============================================================================
// Error Taxonomy
// =============================================================================

// ValidationError reports a malformed author identifier. It is recovered
// locally by skipping the offending record and never propagates out of the
// aggregator.
type ValidationError struct {
	Wallet string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid author wallet %q: %s", e.Wallet, e.Reason)
}

// BackendUnavailableError reports a connectivity-class failure: the RPC
// endpoint is unreachable or the call timed out.
type BackendUnavailableError struct {
	Op  string
	Err error
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("backend unavailable during %s: %v", e.Op, e.Err)
}

func (e *BackendUnavailableError) Unwrap() error { return e.Err }

// IsBackendUnavailable checks if an error is a BackendUnavailableError.
func IsBackendUnavailable(err error) bool {
	var target *BackendUnavailableError
	return asErr(err, &target)
}

// TransferError reports a rejected submission: insufficient balance, invalid
// recipient, nonce collision. It is captured per attempt and never aborts
// the batch.
type TransferError struct {
	Wallet string
	Err    error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer to %s failed: %v", e.Wallet, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// IsTransferError checks if an error is a TransferError.
func IsTransferError(err error) bool {
	var target *TransferError
	return asErr(err, &target)
}

// ConfigurationError reports a malformed registry descriptor or missing
// required interface method. It is recovered by degrading to the
// direct-transfer backend; it is logged, never fatal.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("registry configuration invalid (%s): %s", e.Field, e.Reason)
}

// IsConfigurationError checks if an error is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return asErr(err, &target)
}

// SettlementDeniedError is the hard stop surfaced when the gating policy
// blocks generation in enforcing mode. The caller must not synthesize a
// partial answer.
type SettlementDeniedError struct {
	Reason string
	Result *SettlementResult
}

func (e *SettlementDeniedError) Error() string {
	return fmt.Sprintf("settlement denied: %s", e.Reason)
}

// IsSettlementDenied checks if an error is a SettlementDeniedError.
func IsSettlementDenied(err error) bool {
	var target *SettlementDeniedError
	return asErr(err, &target)
}
