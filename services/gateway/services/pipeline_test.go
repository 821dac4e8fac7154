// Copyright (C) 2025 CogniShare Protocol (dev@cognishare.network)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognishare/cognishare/services/gateway/datatypes"
	"github.com/cognishare/cognishare/services/knowledge"
	"github.com/cognishare/cognishare/services/llm"
	"github.com/cognishare/cognishare/services/payments"
)

// recordingLLM counts generations so tests can prove the gate held.
type recordingLLM struct {
	calls  int
	answer string
}

func (r *recordingLLM) Generate(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
	r.calls++
	if r.answer == "" {
		return "canned answer", nil
	}
	return r.answer, nil
}

// refusingBackend fails every submission so enforcing-mode settlement
// denies.
type refusingBackend struct{}

func (refusingBackend) Kind() payments.BackendKind            { return payments.BackendDirect }
func (refusingBackend) Probe(ctx context.Context) error       { return nil }
func (refusingBackend) BaseNonce(ctx context.Context) (uint64, error) { return 0, nil }
func (refusingBackend) Submit(ctx context.Context, req payments.SubmitRequest) (*payments.SubmitReceipt, error) {
	return nil, &payments.TransferError{Wallet: req.Wallet, Err: errors.New("insufficient funds")}
}

func queryRequest() datatypes.QueryRequest {
	req := datatypes.QueryRequest{Message: "how do micropayments compensate citation authors?"}
	req.EnsureDefaults()
	return req
}

func TestPipeline_SimulatedFlow(t *testing.T) {
	store := knowledge.NewMemoryStore()
	engine := payments.NewEngine(payments.NewSimulatedBackend(), payments.ModeSimulated, payments.NewReporter())
	gen := &recordingLLM{}

	pipeline := NewQueryPipeline(store, engine, gen, nil, 0.01, "testnet")
	outcome, denial, err := pipeline.Execute(context.Background(), queryRequest())

	require.NoError(t, err)
	require.Nil(t, denial)
	require.NotNil(t, outcome)
	assert.Equal(t, 1, gen.calls)
	assert.True(t, outcome.Simulated)
	assert.True(t, outcome.Settlement.Simulated)
	assert.NotEmpty(t, outcome.Sources)
	assert.NotEmpty(t, outcome.Settlement.Attempts)
	for _, a := range outcome.Settlement.Attempts {
		assert.Equal(t, "sent", a.Status)
		assert.Empty(t, a.ExplorerURL, "fabricated hashes get no explorer link")
	}
}

// TestPipeline_DenialWithholdsGeneration is the core x402 property: if no
// author can be compensated, the generator is never invoked.
func TestPipeline_DenialWithholdsGeneration(t *testing.T) {
	store := knowledge.NewMemoryStore()
	engine := payments.NewEngine(refusingBackend{}, payments.ModeEnforcing, payments.NewReporter())
	gen := &recordingLLM{}

	pipeline := NewQueryPipeline(store, engine, gen, nil, 0.01, "testnet")
	outcome, denial, err := pipeline.Execute(context.Background(), queryRequest())

	require.NoError(t, err)
	assert.Nil(t, outcome)
	require.NotNil(t, denial)
	assert.Equal(t, 0, gen.calls, "generation must not run after a denied settlement")
	assert.NotEmpty(t, denial.Reason)
	assert.False(t, denial.Settlement.OverallSuccess)
	assert.NotEmpty(t, denial.Settlement.Attempts)
}

func TestPipeline_NoMatchingChunks(t *testing.T) {
	store := knowledge.NewEmptyMemoryStore()
	engine := payments.NewEngine(refusingBackend{}, payments.ModeEnforcing, payments.NewReporter())
	gen := &recordingLLM{}

	pipeline := NewQueryPipeline(store, engine, gen, nil, 0.01, "testnet")
	req := datatypes.QueryRequest{Message: "zzz unmatched"}
	req.EnsureDefaults()

	outcome, denial, err := pipeline.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, outcome)
	require.NotNil(t, denial, "an empty citation set is a denial in enforcing mode")
	assert.Contains(t, denial.Reason, "no payable authors")
	assert.Equal(t, 0, gen.calls)
}

func TestExcerpt(t *testing.T) {
	short := "short text"
	assert.Equal(t, short, excerpt(short))

	long := strings.Repeat("a", 500)
	cut := excerpt(long)
	assert.True(t, strings.HasSuffix(cut, "…"))
	assert.Less(t, len(cut), len(long))
}
