// Copyright (C) 2025 CogniShare Protocol (dev@cognishare.network)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package knowledge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate/entities/models"
)

func TestChunkObject_DeterministicID(t *testing.T) {
	chunk := AuthorChunk{
		ChunkID:      "abcd1234abcd1234",
		AuthorWallet: testWallet,
		SourceFile:   "notes.md",
		ChunkIndex:   2,
		Text:         "some content",
		IngestedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	a := chunkObject(chunk)
	b := chunkObject(chunk)
	assert.Equal(t, a.ID, b.ID, "same chunk id must map to the same object id")
	assert.Equal(t, AuthorChunkClass, a.Class)

	chunk.ChunkID = "ffff0000ffff0000"
	c := chunkObject(chunk)
	assert.NotEqual(t, a.ID, c.ID)

	props, ok := a.Properties.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, testWallet, props["authorWallet"])
	assert.Equal(t, "notes.md", props["sourceFile"])
	assert.Equal(t, 2, props["chunkIndex"])
}

func TestParseChunks(t *testing.T) {
	result := &models.GraphQLResponse{
		Data: map[string]models.JSONObject{
			"Get": map[string]interface{}{
				AuthorChunkClass: []interface{}{
					map[string]interface{}{
						"chunkId":      "c1",
						"authorWallet": testWallet,
						"sourceFile":   "a.md",
						"chunkIndex":   float64(0),
						"content":      "first chunk",
						"_additional":  map[string]interface{}{"certainty": 0.91},
					},
					map[string]interface{}{
						"chunkId":      "c2",
						"authorWallet": testWallet,
						"sourceFile":   "a.md",
						"chunkIndex":   float64(1),
						"content":      "second chunk",
					},
					"not-an-object",
				},
			},
		},
	}

	chunks := parseChunks(result)
	require.Len(t, chunks, 2, "malformed entries are skipped")

	assert.Equal(t, "c1", chunks[0].ChunkID)
	assert.Equal(t, 0.91, chunks[0].Score)
	assert.Equal(t, "first chunk", chunks[0].Text)

	assert.Equal(t, 1, chunks[1].ChunkIndex)
	assert.Equal(t, 0.5, chunks[1].Score, "missing certainty falls back to neutral score")
}

func TestParseChunks_EmptyResponse(t *testing.T) {
	assert.Empty(t, parseChunks(&models.GraphQLResponse{Data: map[string]models.JSONObject{}}))
	assert.Empty(t, parseChunks(&models.GraphQLResponse{
		Data: map[string]models.JSONObject{"Get": map[string]interface{}{}},
	}))
}
