// Copyright (C) 2025 CogniShare Protocol (dev@cognishare.network)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package knowledge

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	chunkSize    = 500
	chunkOverlap = 50

	// chunkIDWindow is how much leading text feeds the chunk identifier.
	chunkIDWindow = 100
)

func newSplitter() textsplitter.TextSplitter {
	return textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
	)
}

// ChunkID derives the deterministic identifier for a chunk: the same author
// contributing the same leading text always maps to the same id, so
// re-ingestion is an overwrite.
func ChunkID(authorWallet, text string) string {
	window := text
	if len(window) > chunkIDWindow {
		window = window[:chunkIDWindow]
	}
	sum := sha256.Sum256([]byte(strings.ToLower(authorWallet) + ":" + window))
	return hex.EncodeToString(sum[:])[:16]
}

// SplitDocument splits a document into attributed chunks.
func SplitDocument(text, authorWallet, sourceFile string) ([]AuthorChunk, error) {
	pieces, err := newSplitter().SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("failed to split document: %w", err)
	}

	now := time.Now().UTC()
	chunks := make([]AuthorChunk, 0, len(pieces))
	for i, piece := range pieces {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		chunks = append(chunks, AuthorChunk{
			ChunkID:      ChunkID(authorWallet, piece),
			AuthorWallet: authorWallet,
			SourceFile:   sourceFile,
			ChunkIndex:   i,
			Text:         piece,
			IngestedAt:   now,
		})
	}
	return chunks, nil
}
