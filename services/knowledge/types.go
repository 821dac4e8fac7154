// Copyright (C) 2025 CogniShare Protocol (dev@cognishare.network)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package knowledge is the retrieval side of the pipeline: an author-attributed
// chunk store. Every chunk carries the wallet of the author who contributed
// it, which is what makes citation settlement possible downstream.
//
// Two store implementations exist: a Weaviate-backed store for real
// deployments and an in-memory store that keeps the pipeline demonstrable
// when no vector database is reachable.
package knowledge

import (
	"context"
	"errors"
	"time"
)

// AuthorChunkClass is the Weaviate class name for attributed chunks.
const AuthorChunkClass = "AuthorChunk"

// DefaultTopK is the retrieval depth when the caller does not specify one.
const DefaultTopK = 3

// ErrStoreUnavailable is returned when the backing store cannot be reached.
var ErrStoreUnavailable = errors.New("knowledge store is not available")

// AuthorChunk is one attributed text chunk.
type AuthorChunk struct {
	// ChunkID is deterministic in (authorWallet, leading text), so
	// re-ingesting the same material overwrites instead of duplicating.
	ChunkID string `json:"chunk_id"`

	// AuthorWallet is the contributor's payout address.
	AuthorWallet string `json:"author_wallet"`

	// SourceFile names where the chunk came from.
	SourceFile string `json:"source_file"`

	// ChunkIndex is the chunk's position within its source document.
	ChunkIndex int `json:"chunk_index"`

	Text       string    `json:"text"`
	IngestedAt time.Time `json:"ingested_at"`
}

// RetrievedChunk is a chunk plus its retrieval relevance score.
type RetrievedChunk struct {
	AuthorChunk
	Score float64 `json:"score"`
}

// StoreStats summarizes what a store currently holds.
type StoreStats struct {
	Backend     string `json:"backend"`
	ChunkCount  int    `json:"chunk_count"`
	AuthorCount int    `json:"author_count"`
	Reachable   bool   `json:"reachable"`
}

// Store is the retrieval contract the gateway pipeline depends on.
type Store interface {
	// Ingest splits the text, attributes every chunk to the wallet, and
	// upserts the chunks. Returns the number of chunks stored.
	Ingest(ctx context.Context, text, authorWallet, sourceFile string) (int, error)

	// Query returns the topK most relevant chunks for the query text,
	// best first. topK <= 0 selects DefaultTopK.
	Query(ctx context.Context, query string, topK int) ([]RetrievedChunk, error)

	// Stats reports what the store holds.
	Stats(ctx context.Context) StoreStats
}
