// Copyright (C) 2025 CogniShare Protocol (dev@cognishare.network)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"

	"github.com/cognishare/cognishare/services/gateway/datatypes"
	"github.com/cognishare/cognishare/services/knowledge"
	"github.com/cognishare/cognishare/services/payments"
)

// ServiceFee configures the optional per-ingest data-service charge. A zero
// value (no wallet) disables it.
type ServiceFee struct {
	Wallet    string
	AmountCRO float64
}

// CreateDocument ingests an attributed document for POST /v1/documents.
// When a service fee is configured, the fee settles through the engine
// after a successful ingest; a fee failure is logged, not fatal, and is
// reported in the response.
func CreateDocument(store knowledge.Store, engine *payments.Engine, fee ServiceFee) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := gatewayTracer.Start(c.Request.Context(), "CreateDocument")
		defer span.End()

		var req datatypes.IngestDocumentRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		req.EnsureDefaults()
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		stored, err := store.Ingest(ctx, req.Text, req.AuthorWallet, req.SourceFile)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "ingest failed")
			slog.Error("Document ingest failed", "source", req.SourceFile, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to ingest document"})
			return
		}

		resp := datatypes.IngestDocumentResponse{
			SourceFile:   req.SourceFile,
			AuthorWallet: req.AuthorWallet,
			ChunksStored: stored,
		}

		if fee.Wallet != "" && fee.AmountCRO > 0 {
			feeResult, feeErr := engine.SettleServiceFee(ctx, fee.Wallet, fee.AmountCRO, req.SourceFile)
			if feeErr != nil || !feeResult.OverallSuccess {
				slog.Warn("Data-service fee settlement failed",
					"source", req.SourceFile, "error", feeErr)
				resp.ServiceFee = &datatypes.ServiceFeeInfo{Settled: false}
			} else {
				resp.ServiceFee = &datatypes.ServiceFeeInfo{
					Settled:   true,
					AmountCRO: fee.AmountCRO,
					TxHash:    feeResult.Attempts[0].TxHash,
				}
			}
		}

		c.JSON(http.StatusCreated, resp)
	}
}

// DocumentStats reports the chunk store's contents for GET /v1/documents/stats.
func DocumentStats(store knowledge.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, store.Stats(c.Request.Context()))
	}
}
