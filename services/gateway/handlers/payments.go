// Copyright (C) 2025 CogniShare Protocol (dev@cognishare.network)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cognishare/cognishare/services/payments"
)

// PaymentStatus reports the settlement engine's operational state for
// GET /v1/payments/status: mode, backend, reachability, sender balance.
func PaymentStatus(engine *payments.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, engine.Status(c.Request.Context()))
	}
}

// PaymentAnalytics reports lifetime settlement totals for
// GET /v1/payments/analytics.
func PaymentAnalytics(engine *payments.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, engine.Reporter().Analytics())
	}
}

// HealthCheck answers GET /health.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
