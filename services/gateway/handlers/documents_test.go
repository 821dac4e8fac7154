// Copyright (C) 2025 CogniShare Protocol (dev@cognishare.network)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognishare/cognishare/services/gateway/datatypes"
	"github.com/cognishare/cognishare/services/knowledge"
	"github.com/cognishare/cognishare/services/payments"
)

var contributorWallet = "0x" + strings.Repeat("dd", 20)

func newDocumentsRouter(store knowledge.Store, fee ServiceFee) *gin.Engine {
	engine := payments.NewEngine(payments.NewSimulatedBackend(), payments.ModeSimulated, payments.NewReporter())
	router := gin.New()
	router.POST("/v1/documents", CreateDocument(store, engine, fee))
	router.GET("/v1/documents/stats", DocumentStats(store))
	return router
}

func postDocument(t *testing.T, router *gin.Engine, body datatypes.IngestDocumentRequest) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateDocument(t *testing.T) {
	store := knowledge.NewEmptyMemoryStore()
	router := newDocumentsRouter(store, ServiceFee{})

	rec := postDocument(t, router, datatypes.IngestDocumentRequest{
		Text:         "Attribution turns retrieval into a settlement event.",
		AuthorWallet: contributorWallet,
		SourceFile:   "attribution.md",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp datatypes.IngestDocumentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "attribution.md", resp.SourceFile)
	assert.Equal(t, contributorWallet, resp.AuthorWallet)
	assert.Equal(t, 1, resp.ChunksStored)
	assert.Nil(t, resp.ServiceFee, "no fee configured, none reported")

	stats := store.Stats(context.Background())
	assert.Equal(t, 1, stats.ChunkCount)
}

func TestCreateDocument_InvalidWallet(t *testing.T) {
	router := newDocumentsRouter(knowledge.NewEmptyMemoryStore(), ServiceFee{})

	rec := postDocument(t, router, datatypes.IngestDocumentRequest{
		Text:         "content",
		AuthorWallet: "not-a-wallet",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postDocument(t, router, datatypes.IngestDocumentRequest{
		AuthorWallet: contributorWallet,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "empty text must be rejected")
}

func TestCreateDocument_ServiceFee(t *testing.T) {
	router := newDocumentsRouter(knowledge.NewEmptyMemoryStore(), ServiceFee{
		Wallet:    contributorWallet,
		AmountCRO: 0.05,
	})

	rec := postDocument(t, router, datatypes.IngestDocumentRequest{
		Text:         "Premium content with a data-service charge.",
		AuthorWallet: contributorWallet,
		SourceFile:   "premium.md",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp datatypes.IngestDocumentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.ServiceFee, "fee settlement must be reported")
	assert.True(t, resp.ServiceFee.Settled)
	assert.InDelta(t, 0.05, resp.ServiceFee.AmountCRO, 1e-12)
	assert.NotEmpty(t, resp.ServiceFee.TxHash)
}

func TestDocumentStats(t *testing.T) {
	router := newDocumentsRouter(knowledge.NewMemoryStore(), ServiceFee{})

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats knowledge.StoreStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, "memory", stats.Backend)
	assert.Greater(t, stats.ChunkCount, 0)
}
