// Copyright (C) 2025 CogniShare Protocol (dev@cognishare.network)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package knowledge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWallet = "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

func TestChunkID_Deterministic(t *testing.T) {
	first := ChunkID(testWallet, "some contributed text")
	second := ChunkID(testWallet, "some contributed text")
	assert.Equal(t, first, second)
	assert.Len(t, first, 16)

	assert.Equal(t, first, ChunkID(strings.ToLower(testWallet), "some contributed text"),
		"wallet casing must not change the id")
	assert.NotEqual(t, first, ChunkID(testWallet, "different text"))
}

func TestChunkID_WindowsLeadingText(t *testing.T) {
	long := strings.Repeat("x", 150)
	assert.Equal(t, ChunkID(testWallet, long+"one"), ChunkID(testWallet, long+"two"),
		"only the first 100 characters identify the chunk")
}

func TestSplitDocument(t *testing.T) {
	text := strings.Repeat("Attribution is the missing primitive in AI knowledge systems. ", 30)

	chunks, err := SplitDocument(text, testWallet, "essay.md")
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1, "a long document must split into multiple chunks")

	seen := make(map[string]struct{})
	for _, chunk := range chunks {
		assert.Equal(t, testWallet, chunk.AuthorWallet)
		assert.Equal(t, "essay.md", chunk.SourceFile)
		assert.NotEmpty(t, chunk.Text)
		assert.LessOrEqual(t, len(chunk.Text), chunkSize+chunkOverlap)
		seen[chunk.ChunkID] = struct{}{}
	}
	assert.Len(t, seen, len(chunks), "chunk ids within one document must be unique")
}

func TestSplitDocument_Empty(t *testing.T) {
	chunks, err := SplitDocument("", testWallet, "empty.md")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}
