// Copyright (C) 2025 CogniShare Protocol (dev@cognishare.network)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package payments

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test wallets. walletA and walletB are distinct valid addresses; walletA
// appears in both lower and upper hex case to exercise canonicalization.
var (
	walletA      = "0x" + strings.Repeat("aa", 20)
	walletAUpper = "0x" + strings.Repeat("AA", 20)
	walletB      = "0x" + strings.Repeat("bb", 20)
	walletC      = "0x" + strings.Repeat("cc", 20)
	walletZero   = "0x" + strings.Repeat("00", 20)
)

func TestValidateWallet_Valid(t *testing.T) {
	assert.NoError(t, ValidateWallet(walletA))
	assert.NoError(t, ValidateWallet(walletAUpper))
	assert.NoError(t, ValidateWallet("  "+walletB+"  "), "surrounding whitespace should be tolerated")
}

func TestValidateWallet_Invalid(t *testing.T) {
	cases := []struct {
		name   string
		wallet string
	}{
		{"empty", ""},
		{"no prefix", strings.Repeat("aa", 20)},
		{"too short", "0xabc"},
		{"not hex", "not-a-wallet"},
		{"zero address", walletZero},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateWallet(tc.wallet)
			require.Error(t, err)
			var ve *ValidationError
			assert.ErrorAs(t, err, &ve, "should be a ValidationError")
		})
	}
}

// TestAggregate_Scenario covers the canonical two-author case: three
// citations, one author cited twice.
func TestAggregate_Scenario(t *testing.T) {
	records := []CitationRecord{
		{AuthorWallet: walletA, Text: "decentralized AI shifts control away from single entities", Score: 0.9},
		{AuthorWallet: walletA, Text: "micropayments compensate creators per citation", Score: 0.7},
		{AuthorWallet: walletB, Text: "low-cost transactions suit micropayment use cases", Score: 0.5},
	}

	aggregates, skipped := Aggregate(records, 0.01)
	require.Len(t, aggregates, 2)
	assert.Equal(t, 0, skipped)

	assert.Equal(t, CanonicalWallet(walletA), aggregates[0].AuthorWallet)
	assert.Equal(t, 2, aggregates[0].CitationCount)
	assert.InDelta(t, 0.02, aggregates[0].TotalAmountCRO, 1e-12)

	assert.Equal(t, CanonicalWallet(walletB), aggregates[1].AuthorWallet)
	assert.Equal(t, 1, aggregates[1].CitationCount)
	assert.InDelta(t, 0.01, aggregates[1].TotalAmountCRO, 1e-12)
}

// TestAggregate_Completeness verifies that every input record is either
// aggregated or counted as skipped.
func TestAggregate_Completeness(t *testing.T) {
	records := []CitationRecord{
		{AuthorWallet: walletA, Text: "one"},
		{AuthorWallet: "not-a-wallet", Text: "two"},
		{AuthorWallet: walletB, Text: "three"},
		{AuthorWallet: walletZero, Text: "four"},
		{AuthorWallet: walletA, Text: "five"},
	}

	aggregates, skipped := Aggregate(records, 0.01)

	total := skipped
	for _, agg := range aggregates {
		total += agg.CitationCount
	}
	assert.Equal(t, len(records), total, "citation counts plus skipped must cover every record")
	assert.Equal(t, 2, skipped)
	assert.Len(t, aggregates, 2)
}

func TestAggregate_MalformedWalletSkipped(t *testing.T) {
	records := []CitationRecord{
		{AuthorWallet: "not-a-wallet", Text: "bad"},
		{AuthorWallet: walletA, Text: "good"},
	}

	aggregates, skipped := Aggregate(records, 0.01)
	assert.Equal(t, 1, skipped)
	require.Len(t, aggregates, 1)
	assert.Equal(t, CanonicalWallet(walletA), aggregates[0].AuthorWallet)
}

func TestAggregate_EmptyInput(t *testing.T) {
	aggregates, skipped := Aggregate(nil, 0.01)
	assert.Empty(t, aggregates)
	assert.Equal(t, 0, skipped)

	aggregates, skipped = Aggregate([]CitationRecord{{AuthorWallet: "nope"}}, 0.01)
	assert.Empty(t, aggregates, "all-invalid input yields an empty aggregate set, not an error")
	assert.Equal(t, 1, skipped)
}

// TestAggregate_MixedCaseSameAuthor verifies that hex casing does not split
// an author into two aggregates.
func TestAggregate_MixedCaseSameAuthor(t *testing.T) {
	records := []CitationRecord{
		{AuthorWallet: walletA, Text: "first"},
		{AuthorWallet: walletAUpper, Text: "second"},
	}

	aggregates, skipped := Aggregate(records, 0.01)
	assert.Equal(t, 0, skipped)
	require.Len(t, aggregates, 1)
	assert.Equal(t, 2, aggregates[0].CitationCount)
}

// TestAggregate_DigestDeterminism: identical inputs must always produce the
// identical digest; changed excerpt order must not.
func TestAggregate_DigestDeterminism(t *testing.T) {
	records := []CitationRecord{
		{AuthorWallet: walletA, Text: "alpha"},
		{AuthorWallet: walletA, Text: "beta"},
	}

	first, _ := Aggregate(records, 0.01)
	second, _ := Aggregate(records, 0.01)
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ContentDigest, second[0].ContentDigest)

	reordered, _ := Aggregate([]CitationRecord{records[1], records[0]}, 0.01)
	require.Len(t, reordered, 1)
	assert.NotEqual(t, first[0].ContentDigest, reordered[0].ContentDigest,
		"excerpt order is part of the fingerprint")
}

func TestAggregate_DigestShape(t *testing.T) {
	aggregates, _ := Aggregate([]CitationRecord{{AuthorWallet: walletA, Text: "x"}}, 0.01)
	require.Len(t, aggregates, 1)

	digest := aggregates[0].ContentDigest
	assert.True(t, strings.HasPrefix(digest, "0x"))
	assert.Len(t, digest, 2+64, "sha256 hex plus prefix")

	word, ok := DigestBytes32(digest)
	assert.True(t, ok)
	assert.NotEqual(t, [32]byte{}, word)
}

// TestAggregate_ExcerptTruncation: only the first 200 runes of an excerpt
// feed the digest, so a change past the window must not change it.
func TestAggregate_ExcerptTruncation(t *testing.T) {
	long := strings.Repeat("a", 300)
	first, _ := Aggregate([]CitationRecord{{AuthorWallet: walletA, Text: long + "tail-one"}}, 0.01)
	second, _ := Aggregate([]CitationRecord{{AuthorWallet: walletA, Text: long + "tail-two"}}, 0.01)
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ContentDigest, second[0].ContentDigest)
}

func TestAggregate_FirstSeenOrder(t *testing.T) {
	records := []CitationRecord{
		{AuthorWallet: walletC, Text: "c"},
		{AuthorWallet: walletA, Text: "a"},
		{AuthorWallet: walletB, Text: "b"},
		{AuthorWallet: walletA, Text: "a again"},
	}

	aggregates, _ := Aggregate(records, 0.01)
	require.Len(t, aggregates, 3)
	assert.Equal(t, CanonicalWallet(walletC), aggregates[0].AuthorWallet)
	assert.Equal(t, CanonicalWallet(walletA), aggregates[1].AuthorWallet)
	assert.Equal(t, CanonicalWallet(walletB), aggregates[2].AuthorWallet)
}

func TestDigestBytes32_Malformed(t *testing.T) {
	_, ok := DigestBytes32("0x1234")
	assert.False(t, ok, "short digest must be rejected")
	_, ok = DigestBytes32("not-hex")
	assert.False(t, ok)
}
