// Copyright (C) 2025 CogniShare Protocol (dev@cognishare.network)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package payments

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// excerptDigestLimit bounds how much of each cited excerpt feeds the
// content digest. Matches the attribution window recorded on chain.
const excerptDigestLimit = 200

// zeroAddress is the all-zero sentinel; it is never a payable author.
var zeroAddress = common.Address{}

// ValidateWallet checks an author identifier: 0x prefix, 40 hex characters,
// not the zero address. Returns a *ValidationError describing the problem,
// or nil when the wallet is payable.
func ValidateWallet(wallet string) error {
	trimmed := strings.TrimSpace(wallet)
	if trimmed == "" {
		return &ValidationError{Wallet: wallet, Reason: "empty"}
	}
	if !strings.HasPrefix(trimmed, "0x") {
		return &ValidationError{Wallet: wallet, Reason: "missing 0x prefix"}
	}
	if !common.IsHexAddress(trimmed) {
		return &ValidationError{Wallet: wallet, Reason: "not a 20-byte hex address"}
	}
	if common.HexToAddress(trimmed) == zeroAddress {
		return &ValidationError{Wallet: wallet, Reason: "zero address"}
	}
	return nil
}

// CanonicalWallet returns the EIP-55 checksummed form of a wallet that has
// already passed ValidateWallet. Canonicalization is what makes 0xABC… and
// 0xabc… aggregate to the same author and what keeps the content digest
// deterministic.
func CanonicalWallet(wallet string) string {
	return common.HexToAddress(strings.TrimSpace(wallet)).Hex()
}

// Aggregate groups citation records by author and computes what each author
// is owed at the given per-citation rate.
//
// Malformed author wallets are counted in the returned skipped count and
// excluded from the aggregates; a single bad record is never fatal. An empty
// input (or one where every record fails validation) yields an empty slice,
// which the engine reads as "nothing to settle".
//
// Aggregates are returned in first-seen order of their author, which fixes
// nonce assignment order and the attempt order in the settlement result.
//
// Invariant: sum of CitationCount over the aggregates plus skipped equals
// len(records).
func Aggregate(records []CitationRecord, ratePerCitationCRO float64) ([]AuthorPaymentAggregate, int) {
	type bucket struct {
		count    int
		excerpts []string
	}

	order := make([]string, 0, len(records))
	buckets := make(map[string]*bucket)
	skipped := 0

	for _, rec := range records {
		if err := ValidateWallet(rec.AuthorWallet); err != nil {
			skipped++
			slog.Warn("Skipping citation with invalid author wallet",
				"wallet", rec.AuthorWallet, "reason", err.Error())
			continue
		}
		wallet := CanonicalWallet(rec.AuthorWallet)
		b, ok := buckets[wallet]
		if !ok {
			b = &bucket{}
			buckets[wallet] = b
			order = append(order, wallet)
		}
		b.count++
		b.excerpts = append(b.excerpts, truncateRunes(rec.Text, excerptDigestLimit))
	}

	aggregates := make([]AuthorPaymentAggregate, 0, len(order))
	for _, wallet := range order {
		b := buckets[wallet]
		aggregates = append(aggregates, AuthorPaymentAggregate{
			AuthorWallet:   wallet,
			CitationCount:  b.count,
			TotalAmountCRO: ratePerCitationCRO * float64(b.count),
			ContentDigest:  contentDigest(wallet, b.excerpts),
		})
	}
	return aggregates, skipped
}

// contentDigest fingerprints an author's cited content: sha256 over the
// canonical wallet followed by each truncated excerpt in citation order.
func contentDigest(wallet string, excerpts []string) string {
	h := sha256.New()
	h.Write([]byte(wallet))
	for _, e := range excerpts {
		h.Write([]byte(e))
	}
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

// DigestBytes32 converts a 0x-prefixed content digest into the fixed-size
// word the registry contract expects. Returns false when the digest is not
// a well-formed 32-byte hex string.
func DigestBytes32(digest string) ([32]byte, bool) {
	var out [32]byte
	raw, err := hex.DecodeString(strings.TrimPrefix(digest, "0x"))
	if err != nil || len(raw) != 32 {
		return out, false
	}
	copy(out[:], raw)
	return out, true
}

// truncateRunes limits s to at most n runes without splitting a character.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
