// Copyright (C) 2025 CogniShare Protocol (dev@cognishare.network)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/cognishare/cognishare/services/gateway/handlers"
	"github.com/cognishare/cognishare/services/gateway/observability"
	"github.com/cognishare/cognishare/services/gateway/routes"
	"github.com/cognishare/cognishare/services/gateway/services"
	"github.com/cognishare/cognishare/services/knowledge"
	"github.com/cognishare/cognishare/services/llm"
	"github.com/cognishare/cognishare/services/payments"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "cognishare-otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("cognishare-gateway")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func main() {
	port := os.Getenv("GATEWAY_PORT")
	if port == "" {
		port = "12402"
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	ctx := context.Background()

	// Settlement engine: the one component everything gates on. Bootstrap
	// never fails; at worst it comes up simulated with a logged reason.
	payCfg := payments.ConfigFromEnv()
	engine, chain := payments.Bootstrap(ctx, payCfg)
	if chain != nil {
		defer chain.Close()
	}

	store := knowledge.NewStore(ctx, os.Getenv("WEAVIATE_SERVICE_URL"))
	llmClient := llm.NewFromEnv()

	metrics := observability.NewSettlementMetrics(prometheus.DefaultRegisterer)
	hub := handlers.NewFeedHub(metrics)
	engine.OnAttempt(hub.Publish)
	engine.OnAttempt(metrics.ObserveAttempt)

	pipeline := services.NewQueryPipeline(store, engine, llmClient, metrics,
		payCfg.RatePerCitationCRO, payCfg.Chain.Network)

	fee := handlers.ServiceFee{
		Wallet:    payCfg.ServiceFeeWallet,
		AmountCRO: payCfg.ServiceFeeCRO,
	}

	router := gin.Default()
	router.Use(otelgin.Middleware("cognishare-gateway"))
	routes.SetupRoutes(router, pipeline, store, engine, hub, metrics, fee)

	slog.Info("CogniShare gateway starting",
		"port", port,
		"mode", engine.Mode().String(),
		"backend", engine.BackendKind(),
		"rate_cro", payCfg.RatePerCitationCRO)

	if err := router.Run(":" + port); err != nil {
		log.Fatalf("gateway exited: %v", err)
	}
}
