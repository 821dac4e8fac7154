// Copyright (C) 2025 CogniShare Protocol (dev@cognishare.network)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package knowledge

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var storeTracer = otel.Tracer("cognishare.knowledge")

const (
	// upsertBatchSize bounds one Weaviate batch request.
	upsertBatchSize = 64

	// upsertConcurrency bounds parallel batch requests per ingest call.
	upsertConcurrency = 4

	queryTimeout = 15 * time.Second
)

// WeaviateStore persists attributed chunks in a Weaviate AuthorChunk class.
type WeaviateStore struct {
	client *weaviate.Client
}

// NewWeaviateStore connects to Weaviate and ensures the AuthorChunk schema
// exists. A connection or readiness failure returns ErrStoreUnavailable so
// the caller can fall back to the in-memory store.
func NewWeaviateStore(ctx context.Context, rawURL string) (*WeaviateStore, error) {
	cfg := weaviate.Config{Host: rawURL, Scheme: "http"}
	switch {
	case strings.HasPrefix(rawURL, "https://"):
		cfg.Scheme = "https"
		cfg.Host = strings.TrimPrefix(rawURL, "https://")
	case strings.HasPrefix(rawURL, "http://"):
		cfg.Host = strings.TrimPrefix(rawURL, "http://")
	}

	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}

	ready, err := client.Misc().ReadyChecker().Do(ctx)
	if err != nil || !ready {
		return nil, fmt.Errorf("%w: %s not ready", ErrStoreUnavailable, rawURL)
	}

	store := &WeaviateStore{client: client}
	if err := store.ensureSchema(ctx); err != nil {
		return nil, err
	}

	slog.Info("Weaviate chunk store initialized", "url", rawURL, "class", AuthorChunkClass)
	return store, nil
}

// ensureSchema creates the AuthorChunk class if it does not exist yet.
func (s *WeaviateStore) ensureSchema(ctx context.Context) error {
	exists, err := s.client.Schema().ClassExistenceChecker().
		WithClassName(AuthorChunkClass).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to check schema: %w", err)
	}
	if exists {
		return nil
	}

	class := &models.Class{
		Class:       AuthorChunkClass,
		Description: "Text chunk attributed to its contributing author's wallet",
		Properties: []*models.Property{
			{Name: "chunkId", DataType: []string{"text"}},
			{Name: "authorWallet", DataType: []string{"text"}},
			{Name: "sourceFile", DataType: []string{"text"}},
			{Name: "chunkIndex", DataType: []string{"int"}},
			{Name: "content", DataType: []string{"text"}},
			{Name: "ingestedAt", DataType: []string{"date"}},
		},
	}
	if err := s.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("failed to create %s class: %w", AuthorChunkClass, err)
	}
	slog.Info("Created Weaviate class", "class", AuthorChunkClass)
	return nil
}

// Ingest implements Store. Chunks are upserted in bounded-concurrency
// batches; object ids derive from the deterministic chunk id, so repeat
// ingestion overwrites.
func (s *WeaviateStore) Ingest(ctx context.Context, text, authorWallet, sourceFile string) (int, error) {
	ctx, span := storeTracer.Start(ctx, "WeaviateStore.Ingest")
	defer span.End()

	chunks, err := SplitDocument(text, authorWallet, sourceFile)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "split failed")
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, nil
	}
	span.SetAttributes(attribute.Int("ingest.chunks", len(chunks)))

	objects := make([]*models.Object, len(chunks))
	for i, chunk := range chunks {
		objects[i] = chunkObject(chunk)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(upsertConcurrency)
	for start := 0; start < len(objects); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(objects))
		batch := objects[start:end]
		group.Go(func() error {
			return s.upsertBatch(groupCtx, batch)
		})
	}
	if err := group.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch upsert failed")
		return 0, err
	}

	slog.Info("Ingested document",
		"source", sourceFile,
		"author_wallet", authorWallet,
		"chunks", len(chunks))
	return len(chunks), nil
}

func (s *WeaviateStore) upsertBatch(ctx context.Context, objects []*models.Object) error {
	resp, err := s.client.Batch().ObjectsBatcher().
		WithObjects(objects...).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("%w: batch upsert: %v", ErrStoreUnavailable, err)
	}
	for _, item := range resp {
		if item.Result == nil || item.Result.Status == nil || *item.Result.Status != "SUCCESS" {
			if item.Result != nil && item.Result.Errors != nil && len(item.Result.Errors.Error) > 0 {
				return fmt.Errorf("batch item rejected: %s", item.Result.Errors.Error[0].Message)
			}
			return fmt.Errorf("batch item rejected with no error detail")
		}
	}
	return nil
}

// chunkObject maps a chunk onto a Weaviate object. The object id is a UUID
// derived from the chunk id, which is what makes upserts idempotent.
func chunkObject(chunk AuthorChunk) *models.Object {
	sum := sha256.Sum256([]byte(chunk.ChunkID))
	objectID, _ := uuid.FromBytes(sum[:16])

	return &models.Object{
		Class: AuthorChunkClass,
		ID:    strfmt.UUID(objectID.String()),
		Properties: map[string]interface{}{
			"chunkId":      chunk.ChunkID,
			"authorWallet": chunk.AuthorWallet,
			"sourceFile":   chunk.SourceFile,
			"chunkIndex":   chunk.ChunkIndex,
			"content":      chunk.Text,
			"ingestedAt":   chunk.IngestedAt.Format(time.RFC3339),
		},
	}
}

// Query implements Store using nearText semantic search.
func (s *WeaviateStore) Query(ctx context.Context, query string, topK int) ([]RetrievedChunk, error) {
	ctx, span := storeTracer.Start(ctx, "WeaviateStore.Query")
	defer span.End()

	if topK <= 0 {
		topK = DefaultTopK
	}
	span.SetAttributes(attribute.Int("query.top_k", topK))

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	nearText := s.client.GraphQL().NearTextArgBuilder().
		WithConcepts([]string{query})

	fields := []graphql.Field{
		{Name: "chunkId"},
		{Name: "authorWallet"},
		{Name: "sourceFile"},
		{Name: "chunkIndex"},
		{Name: "content"},
		{Name: "_additional { certainty }"},
	}

	result, err := s.client.GraphQL().Get().
		WithClassName(AuthorChunkClass).
		WithFields(fields...).
		WithNearText(nearText).
		WithLimit(topK).
		Do(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("%w: query: %v", ErrStoreUnavailable, err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("query error: %s", result.Errors[0].Message)
	}

	chunks := parseChunks(result)
	span.SetAttributes(attribute.Int("query.results", len(chunks)))
	return chunks, nil
}

// parseChunks walks the GraphQL response shape, skipping malformed objects.
func parseChunks(result *models.GraphQLResponse) []RetrievedChunk {
	data, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}
	objects, ok := data[AuthorChunkClass].([]interface{})
	if !ok {
		return nil
	}

	chunks := make([]RetrievedChunk, 0, len(objects))
	for _, obj := range objects {
		m, ok := obj.(map[string]interface{})
		if !ok {
			continue
		}

		chunk := RetrievedChunk{
			AuthorChunk: AuthorChunk{
				ChunkID:      getString(m, "chunkId"),
				AuthorWallet: getString(m, "authorWallet"),
				SourceFile:   getString(m, "sourceFile"),
				ChunkIndex:   getInt(m, "chunkIndex"),
				Text:         getString(m, "content"),
			},
			Score: 0.5,
		}
		if additional, ok := m["_additional"].(map[string]interface{}); ok {
			if certainty, ok := additional["certainty"].(float64); ok {
				chunk.Score = certainty
			}
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

// Stats implements Store via an aggregate count.
func (s *WeaviateStore) Stats(ctx context.Context) StoreStats {
	stats := StoreStats{Backend: "weaviate"}

	ready, err := s.client.Misc().ReadyChecker().Do(ctx)
	stats.Reachable = err == nil && ready
	if !stats.Reachable {
		return stats
	}

	agg, err := s.client.GraphQL().Aggregate().
		WithClassName(AuthorChunkClass).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil || len(agg.Errors) > 0 {
		return stats
	}

	if aggData, ok := agg.Data["Aggregate"].(map[string]interface{}); ok {
		if rows, ok := aggData[AuthorChunkClass].([]interface{}); ok && len(rows) > 0 {
			if row, ok := rows[0].(map[string]interface{}); ok {
				if meta, ok := row["meta"].(map[string]interface{}); ok {
					if count, ok := meta["count"].(float64); ok {
						stats.ChunkCount = int(count)
					}
				}
			}
		}
	}
	return stats
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func getInt(m map[string]interface{}, key string) int {
	if v, ok := m[key].(float64); ok {
		return int(v)
	}
	return 0
}
