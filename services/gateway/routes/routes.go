// Copyright (C) 2025 CogniShare Protocol (dev@cognishare.network)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cognishare/cognishare/services/gateway/handlers"
	"github.com/cognishare/cognishare/services/gateway/observability"
	"github.com/cognishare/cognishare/services/gateway/services"
	"github.com/cognishare/cognishare/services/knowledge"
	"github.com/cognishare/cognishare/services/payments"
)

// SetupRoutes registers the gateway's HTTP surface.
func SetupRoutes(
	router *gin.Engine,
	pipeline *services.QueryPipeline,
	store knowledge.Store,
	engine *payments.Engine,
	hub *handlers.FeedHub,
	metrics *observability.SettlementMetrics,
	fee handlers.ServiceFee,
) {
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		v1.POST("/query", handlers.HandleQuery(pipeline, metrics))
		v1.POST("/documents", handlers.CreateDocument(store, engine, fee))
		v1.GET("/documents/stats", handlers.DocumentStats(store))
		payGroup := v1.Group("/payments")
		{
			payGroup.GET("/status", handlers.PaymentStatus(engine))
			payGroup.GET("/analytics", handlers.PaymentAnalytics(engine))
		}
		v1.GET("/settlements/ws", handlers.HandleSettlementFeed(hub))
	}
}
