// Copyright (C) 2025 CogniShare Protocol (dev@cognishare.network)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package payments

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Gas limits per submission path. Direct transfers are plain value moves;
// registry calls need room for the citation event write.
const (
	gasLimitDirect   = 21_000
	gasLimitContract = 150_000
)

// SubmitRequest is one outbound compensation submission.
type SubmitRequest struct {
	// Wallet is the canonical recipient address.
	Wallet string

	// AmountCRO is the compensation amount in whole CRO.
	AmountCRO float64

	// ContentDigest is the attribution fingerprint recorded on chain when
	// the contract path is taken.
	ContentDigest string

	// Nonce is assigned by the engine's per-batch counter.
	Nonce uint64
}

// SubmitReceipt is the successful outcome of one submission.
type SubmitReceipt struct {
	// TxHash is the backend transaction reference.
	TxHash string

	// Path records which route was actually taken; a contract backend can
	// still take the direct path for a single attempt.
	Path SubmissionPath

	// FallbackReason is set when Path differs from the backend's preferred
	// route.
	FallbackReason string
}

// PaymentBackend is the uniform interface the settlement engine drives.
// Implementations must be safe for concurrent use; the engine guarantees
// that submissions within one batch are sequential and nonce-ordered.
type PaymentBackend interface {
	// Kind identifies the backend's preferred submission strategy.
	Kind() BackendKind

	// Probe checks that the backend can currently accept submissions.
	Probe(ctx context.Context) error

	// BaseNonce returns the nonce the first attempt of a batch should use.
	BaseNonce(ctx context.Context) (uint64, error)

	// Submit sends one compensation and returns its receipt. Failures are
	// reported through the settlement error taxonomy: TransferError for
	// rejected submissions, BackendUnavailableError for transport problems.
	Submit(ctx context.Context, req SubmitRequest) (*SubmitReceipt, error)
}

// =============================================================================
// Chain Backend
// =============================================================================

// ChainBackend submits real transactions over an EVM RPC endpoint. When a
// registry handle is present it prefers the contract path and records the
// citation on chain; if a contract call fails to build, that single attempt
// falls back to a direct transfer.
type ChainBackend struct {
	chain    *ChainClient
	registry *Registry
}

// NewChainBackend builds a backend over a connected chain client. registry
// may be nil, which selects the direct-transfer variant.
func NewChainBackend(chain *ChainClient, registry *Registry) *ChainBackend {
	return &ChainBackend{chain: chain, registry: registry}
}

// Kind implements PaymentBackend.
func (b *ChainBackend) Kind() BackendKind {
	if b.registry != nil {
		return BackendContract
	}
	return BackendDirect
}

// Probe implements PaymentBackend.
func (b *ChainBackend) Probe(ctx context.Context) error {
	return b.chain.Probe(ctx)
}

// BaseNonce implements PaymentBackend using the sender's pending nonce.
func (b *ChainBackend) BaseNonce(ctx context.Context) (uint64, error) {
	return b.chain.PendingNonce(ctx)
}

// BalanceCRO exposes the sender balance for status reporting.
func (b *ChainBackend) BalanceCRO(ctx context.Context) (float64, error) {
	return b.chain.BalanceCRO(ctx)
}

// Submit implements PaymentBackend.
func (b *ChainBackend) Submit(ctx context.Context, req SubmitRequest) (*SubmitReceipt, error) {
	gasPrice, err := b.chain.SuggestGasPrice(ctx)
	if err != nil {
		return nil, err
	}

	to := common.HexToAddress(req.Wallet)
	value := CROToWei(req.AmountCRO)

	path := PathDirect
	fallbackReason := ""
	dest := to
	var data []byte
	gas := uint64(gasLimitDirect)

	if b.registry != nil {
		payload, buildErr := b.buildCitationCall(to, req.ContentDigest)
		if buildErr != nil {
			// Per-attempt fallback: the author still gets paid, the
			// on-chain citation record is skipped for this attempt only.
			fallbackReason = buildErr.Error()
			slog.Warn("Contract call failed to build, falling back to direct transfer",
				"wallet", req.Wallet, "error", buildErr)
		} else {
			path = PathContract
			dest = b.registry.Address
			data = payload
			gas = gasLimitContract
		}
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    req.Nonce,
		To:       &dest,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})

	hash, err := b.chain.SignAndSend(ctx, tx, req.Wallet)
	if err != nil {
		return nil, err
	}
	return &SubmitReceipt{
		TxHash:         hash.Hex(),
		Path:           path,
		FallbackReason: fallbackReason,
	}, nil
}

// buildCitationCall packs the payCitation calldata for one attempt.
func (b *ChainBackend) buildCitationCall(author common.Address, digest string) ([]byte, error) {
	word, ok := DigestBytes32(digest)
	if !ok {
		return nil, fmt.Errorf("content digest %q is not a 32-byte hex word", digest)
	}
	payload, err := b.registry.PackPayCitation(author, word)
	if err != nil {
		return nil, fmt.Errorf("failed to pack payCitation: %w", err)
	}
	return payload, nil
}

// =============================================================================
// Simulated Backend
// =============================================================================

// SimulatedBackend fabricates transaction references locally so the full
// settlement flow stays demonstrable without a reachable chain. References
// are deterministic in (wallet, digest, nonce), which keeps test assertions
// stable.
type SimulatedBackend struct{}

// NewSimulatedBackend returns the offline backend.
func NewSimulatedBackend() *SimulatedBackend {
	return &SimulatedBackend{}
}

// Kind implements PaymentBackend.
func (b *SimulatedBackend) Kind() BackendKind { return BackendSimulated }

// Probe implements PaymentBackend; the simulated backend is always ready.
func (b *SimulatedBackend) Probe(ctx context.Context) error { return nil }

// BaseNonce implements PaymentBackend.
func (b *SimulatedBackend) BaseNonce(ctx context.Context) (uint64, error) { return 0, nil }

// Submit implements PaymentBackend.
func (b *SimulatedBackend) Submit(ctx context.Context, req SubmitRequest) (*SubmitReceipt, error) {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%d", req.Wallet, req.ContentDigest, req.Nonce))
	return &SubmitReceipt{
		TxHash: "0x" + hex.EncodeToString(sum[:]),
		Path:   PathSimulated,
	}, nil
}
