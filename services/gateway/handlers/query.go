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
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/cognishare/cognishare/services/gateway/datatypes"
	"github.com/cognishare/cognishare/services/gateway/observability"
	"github.com/cognishare/cognishare/services/gateway/services"
)

var gatewayTracer = otel.Tracer("cognishare.gateway.handlers")

// HandleQuery runs the pay-before-answer pipeline for POST /v1/query.
//
// Status codes: 200 answered, 400 invalid request, 402 settlement denied
// (the x402 semantics: authors could not be compensated, so no answer),
// 500 pipeline failure.
func HandleQuery(pipeline *services.QueryPipeline, metrics *observability.SettlementMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := gatewayTracer.Start(c.Request.Context(), "HandleQuery")
		defer span.End()

		var req datatypes.QueryRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			metrics.QueriesTotal.WithLabelValues("invalid").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		req.EnsureDefaults()
		if err := req.Validate(); err != nil {
			metrics.QueriesTotal.WithLabelValues("invalid").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		outcome, denial, err := pipeline.Execute(ctx, req)
		switch {
		case err != nil:
			span.RecordError(err)
			span.SetStatus(codes.Error, "pipeline failed")
			slog.Error("Query pipeline failed", "request_id", req.RequestID, "error", err)
			metrics.QueriesTotal.WithLabelValues("error").Inc()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query pipeline failed"})

		case denial != nil:
			metrics.QueriesTotal.WithLabelValues("denied").Inc()
			c.JSON(http.StatusPaymentRequired, datatypes.DenialResponse{
				RequestID:  req.RequestID,
				Error:      "settlement denied",
				Reason:     denial.Reason,
				Settlement: denial.Settlement,
			})

		default:
			metrics.QueriesTotal.WithLabelValues("answered").Inc()
			provenance := "settled"
			if outcome.Simulated {
				provenance = "simulated"
			}
			c.JSON(http.StatusOK, datatypes.QueryResponse{
				RequestID:  req.RequestID,
				Answer:     outcome.Answer,
				Sources:    outcome.Sources,
				Settlement: outcome.Settlement,
				Provenance: provenance,
			})
		}
	}
}
