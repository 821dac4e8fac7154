// Copyright (C) 2025 CogniShare Protocol (dev@cognishare.network)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package knowledge

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// demoWallets are the seed authors for the built-in corpus. They are
// well-formed addresses so aggregation treats demo citations like real ones.
var demoWallets = []string{
	"0x" + strings.Repeat("aa", 20),
	"0x" + strings.Repeat("bb", 20),
	"0x" + strings.Repeat("cc", 20),
}

// demoCorpus keeps the pipeline demonstrable before any document has been
// ingested: an empty in-memory store would otherwise retrieve nothing,
// settle nothing, and deny every query.
var demoCorpus = []struct {
	wallet string
	source string
	text   string
}{
	{demoWallets[0], "decentralized_ai.md",
		"Decentralized AI shifts control of models and data away from single entities, distributing both governance and economic reward across the network of contributors."},
	{demoWallets[0], "decentralized_ai.md",
		"Attribution is the missing primitive in AI knowledge systems: when a model cites a source, the source's author should be identifiable and compensable."},
	{demoWallets[1], "micropayments.md",
		"Per-citation micropayments make compensation proportional to actual use. An author cited twice in an answer earns exactly twice the per-citation rate."},
	{demoWallets[1], "micropayments.md",
		"Low-cost, fast-finality chains suit micropayment workloads where the transfer value is small relative to typical transaction fees elsewhere."},
	{demoWallets[2], "knowledge_economy.md",
		"A citation-to-payment pipeline turns retrieval into a settlement event: retrieve, attribute, pay, and only then generate."},
}

// MemoryStore is the fallback Store: plain substring scoring over an
// in-process chunk map. It exists so the full pay-before-answer flow works
// with no external services at all.
//
// MemoryStore is safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	chunks map[string]AuthorChunk
}

// NewMemoryStore returns an in-memory store pre-seeded with the demo corpus.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{chunks: make(map[string]AuthorChunk)}
	for _, d := range demoCorpus {
		chunk := AuthorChunk{
			ChunkID:      ChunkID(d.wallet, d.text),
			AuthorWallet: d.wallet,
			SourceFile:   d.source,
			Text:         d.text,
		}
		s.chunks[chunk.ChunkID] = chunk
	}
	slog.Info("In-memory chunk store initialized", "demo_chunks", len(s.chunks))
	return s
}

// NewEmptyMemoryStore returns an in-memory store with no seed corpus.
func NewEmptyMemoryStore() *MemoryStore {
	return &MemoryStore{chunks: make(map[string]AuthorChunk)}
}

// Ingest implements Store.
func (s *MemoryStore) Ingest(ctx context.Context, text, authorWallet, sourceFile string) (int, error) {
	chunks, err := SplitDocument(text, authorWallet, sourceFile)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	for _, chunk := range chunks {
		s.chunks[chunk.ChunkID] = chunk
	}
	s.mu.Unlock()

	slog.Info("Ingested document into memory store",
		"source", sourceFile,
		"author_wallet", authorWallet,
		"chunks", len(chunks))
	return len(chunks), nil
}

// Query implements Store with case-insensitive term-overlap scoring: the
// score is the fraction of query terms present in the chunk. Crude, but
// deterministic and dependency-free, which is the point of the fallback.
func (s *MemoryStore) Query(ctx context.Context, query string, topK int) ([]RetrievedChunk, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	terms := strings.Fields(strings.ToLower(query))

	s.mu.RLock()
	scored := make([]RetrievedChunk, 0, len(s.chunks))
	for _, chunk := range s.chunks {
		score := termOverlap(strings.ToLower(chunk.Text), terms)
		if score > 0 {
			scored = append(scored, RetrievedChunk{AuthorChunk: chunk, Score: score})
		}
	}
	s.mu.RUnlock()

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ChunkID < scored[j].ChunkID
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func termOverlap(text string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	hits := 0
	for _, term := range terms {
		if strings.Contains(text, term) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}

// Stats implements Store.
func (s *MemoryStore) Stats(ctx context.Context) StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	authors := make(map[string]struct{})
	for _, chunk := range s.chunks {
		authors[strings.ToLower(chunk.AuthorWallet)] = struct{}{}
	}
	return StoreStats{
		Backend:     "memory",
		ChunkCount:  len(s.chunks),
		AuthorCount: len(authors),
		Reachable:   true,
	}
}
