// Copyright (C) 2025 CogniShare Protocol (dev@cognishare.network)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package knowledge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_DemoCorpus(t *testing.T) {
	store := NewMemoryStore()

	stats := store.Stats(context.Background())
	assert.Equal(t, "memory", stats.Backend)
	assert.True(t, stats.Reachable)
	assert.Equal(t, len(demoCorpus), stats.ChunkCount)
	assert.Equal(t, len(demoWallets), stats.AuthorCount)

	results, err := store.Query(context.Background(), "micropayments per citation", 3)
	require.NoError(t, err)
	require.NotEmpty(t, results, "the demo corpus must answer demo-shaped queries")
	for _, r := range results {
		assert.NotEmpty(t, r.AuthorWallet)
		assert.Greater(t, r.Score, 0.0)
	}
}

func TestMemoryStore_IngestAndQuery(t *testing.T) {
	store := NewEmptyMemoryStore()

	count, err := store.Ingest(context.Background(),
		"Settlement engines pay authors before the answer is generated.",
		testWallet, "settlement.md")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	results, err := store.Query(context.Background(), "settlement authors", 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, testWallet, results[0].AuthorWallet)
	assert.Equal(t, "settlement.md", results[0].SourceFile)
}

func TestMemoryStore_IngestIsIdempotent(t *testing.T) {
	store := NewEmptyMemoryStore()
	ctx := context.Background()

	_, err := store.Ingest(ctx, "repeatable content", testWallet, "a.md")
	require.NoError(t, err)
	_, err = store.Ingest(ctx, "repeatable content", testWallet, "a.md")
	require.NoError(t, err)

	assert.Equal(t, 1, store.Stats(ctx).ChunkCount, "same author + text overwrites, never duplicates")
}

func TestMemoryStore_QueryRanking(t *testing.T) {
	store := NewEmptyMemoryStore()
	ctx := context.Background()

	_, err := store.Ingest(ctx, "citation payment settlement", testWallet, "exact.md")
	require.NoError(t, err)
	_, err = store.Ingest(ctx, "citation only", testWallet, "partial.md")
	require.NoError(t, err)
	_, err = store.Ingest(ctx, "entirely unrelated prose", testWallet, "none.md")
	require.NoError(t, err)

	results, err := store.Query(ctx, "citation payment settlement", 10)
	require.NoError(t, err)
	require.Len(t, results, 2, "chunks with no term overlap are excluded")
	assert.Equal(t, "exact.md", results[0].SourceFile, "full overlap outranks partial")
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestMemoryStore_TopKDefault(t *testing.T) {
	store := NewMemoryStore()

	results, err := store.Query(context.Background(), "citation author compensation network", 0)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(results), DefaultTopK)
}
