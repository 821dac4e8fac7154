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
)

// NewStore selects the retrieval backend: Weaviate when a URL is configured
// and reachable, the demo-seeded in-memory store otherwise. Like the
// settlement engine, the store never fails the process; it degrades with a
// logged reason.
func NewStore(ctx context.Context, weaviateURL string) Store {
	if weaviateURL == "" {
		slog.Warn("WEAVIATE_SERVICE_URL not set, using in-memory chunk store")
		return NewMemoryStore()
	}

	store, err := NewWeaviateStore(ctx, weaviateURL)
	if err != nil {
		slog.Warn("Weaviate unavailable, falling back to in-memory chunk store",
			"url", weaviateURL, "error", err)
		return NewMemoryStore()
	}
	return store
}
