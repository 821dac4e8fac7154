// Copyright (C) 2025 CogniShare Protocol (dev@cognishare.network)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package payments

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReporter_RecordBatch(t *testing.T) {
	r := NewReporter()

	r.RecordBatch(&SettlementResult{
		Attempts: []PaymentAttempt{
			{AuthorWallet: walletA, AmountCRO: 0.02, CitationCount: 2, Status: AttemptSent},
			{AuthorWallet: walletB, AmountCRO: 0.01, CitationCount: 1, Status: AttemptFailed},
		},
	})
	r.RecordBatch(&SettlementResult{
		Attempts: []PaymentAttempt{
			{AuthorWallet: walletA, AmountCRO: 0.01, CitationCount: 1, Status: AttemptSent},
		},
	})

	got := r.Analytics()
	assert.InDelta(t, 0.03, got.TotalPaidCRO, 1e-12)
	assert.Equal(t, int64(3), got.TotalCitations)
	assert.Equal(t, 1, got.ActiveAuthors, "walletA paid twice counts once; failed walletB not at all")
	assert.Equal(t, int64(2), got.Settlements)
	assert.Equal(t, int64(1), got.FailedAttempts)
}

func TestReporter_Empty(t *testing.T) {
	got := NewReporter().Analytics()
	assert.Zero(t, got.TotalPaidCRO)
	assert.Zero(t, got.Settlements)
	assert.Zero(t, got.ActiveAuthors)
}

func TestNonceCounter(t *testing.T) {
	c := NewNonceCounter(7)
	assert.Equal(t, uint64(7), c.Peek())
	assert.Equal(t, uint64(7), c.Next())
	assert.Equal(t, uint64(8), c.Next())
	assert.Equal(t, uint64(9), c.Peek())
}
