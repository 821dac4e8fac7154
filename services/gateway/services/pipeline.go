// Copyright (C) 2025 CogniShare Protocol (dev@cognishare.network)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package services holds the gateway's orchestration logic: the
// pay-before-answer query pipeline.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/cognishare/cognishare/services/gateway/datatypes"
	"github.com/cognishare/cognishare/services/gateway/observability"
	"github.com/cognishare/cognishare/services/knowledge"
	"github.com/cognishare/cognishare/services/llm"
	"github.com/cognishare/cognishare/services/payments"
)

var pipelineTracer = otel.Tracer("cognishare.gateway.pipeline")

// QueryPipeline runs the pay-before-answer flow:
// retrieve -> aggregate -> settle -> gate -> generate.
//
// Ordering is the protocol: generation is only ever invoked after the gate
// grants a permit, so a fully failed settlement can never produce an answer.
type QueryPipeline struct {
	store     knowledge.Store
	engine    *payments.Engine
	llmClient llm.LLMClient
	metrics   *observability.SettlementMetrics

	ratePerCitationCRO float64
	network            string
}

// NewQueryPipeline wires the pipeline's collaborators. metrics may be nil.
func NewQueryPipeline(
	store knowledge.Store,
	engine *payments.Engine,
	llmClient llm.LLMClient,
	metrics *observability.SettlementMetrics,
	ratePerCitationCRO float64,
	network string,
) *QueryPipeline {
	return &QueryPipeline{
		store:              store,
		engine:             engine,
		llmClient:          llmClient,
		metrics:            metrics,
		ratePerCitationCRO: ratePerCitationCRO,
		network:            network,
	}
}

// QueryOutcome is the pipeline's result when the gate granted a permit.
type QueryOutcome struct {
	Answer     string
	Sources    []datatypes.SourceInfo
	Settlement datatypes.SettlementInfo
	Simulated  bool
}

// Denial carries everything the 402 response needs.
type Denial struct {
	Reason     string
	Settlement datatypes.SettlementInfo
}

// Execute runs one query. Exactly one of outcome and denial is non-nil on a
// nil error; a non-nil error means the pipeline itself failed (retrieval or
// generation), not that payment was denied.
func (p *QueryPipeline) Execute(ctx context.Context, req datatypes.QueryRequest) (*QueryOutcome, *Denial, error) {
	ctx, span := pipelineTracer.Start(ctx, "QueryPipeline.Execute")
	defer span.End()
	span.SetAttributes(
		attribute.String("query.request_id", req.RequestID),
		attribute.Int("query.top_k", req.TopK),
	)

	// 1. Retrieve.
	chunks, err := p.store.Query(ctx, req.Message, req.TopK)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "retrieval failed")
		return nil, nil, fmt.Errorf("retrieval failed: %w", err)
	}
	span.SetAttributes(attribute.Int("query.chunks", len(chunks)))

	// 2. Aggregate citations.
	records := make([]payments.CitationRecord, 0, len(chunks))
	for _, chunk := range chunks {
		records = append(records, payments.CitationRecord{
			AuthorWallet: chunk.AuthorWallet,
			Text:         chunk.Text,
			Score:        chunk.Score,
		})
	}
	aggregates, skipped := payments.Aggregate(records, p.ratePerCitationCRO)

	// 3. Settle.
	start := time.Now()
	result, err := p.engine.Settle(ctx, aggregates)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "settlement aborted")
		return nil, nil, err
	}
	if p.metrics != nil {
		p.metrics.ObserveBatch(result, time.Since(start).Seconds())
	}
	settlement := datatypes.NewSettlementInfo(result, skipped, p.network)

	// 4. Gate. A denial is a first-class outcome, not an internal error.
	decision, gateErr := payments.Gate(result)
	if gateErr != nil {
		slog.Warn("Settlement denied, withholding answer",
			"request_id", req.RequestID,
			"reason", decision.Reason,
			"authors", len(aggregates))
		span.SetAttributes(attribute.String("query.denial_reason", decision.Reason))
		return nil, &Denial{Reason: decision.Reason, Settlement: settlement}, nil
	}

	// 5. Generate, only now.
	passages := make([]llm.SourcePassage, 0, len(chunks))
	sources := make([]datatypes.SourceInfo, 0, len(chunks))
	for _, chunk := range chunks {
		passages = append(passages, llm.SourcePassage{
			AuthorWallet: chunk.AuthorWallet,
			SourceFile:   chunk.SourceFile,
			Text:         chunk.Text,
		})
		sources = append(sources, datatypes.SourceInfo{
			AuthorWallet: chunk.AuthorWallet,
			SourceFile:   chunk.SourceFile,
			Excerpt:      excerpt(chunk.Text),
			Score:        chunk.Score,
		})
	}

	answer, err := p.llmClient.Generate(ctx, llm.BuildPrompt(req.Message, passages), llm.GenerationParams{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return nil, nil, fmt.Errorf("generation failed after settlement: %w", err)
	}

	slog.Info("Query answered",
		"request_id", req.RequestID,
		"sources", len(sources),
		"paid_cro", result.TotalPaidCRO,
		"simulated", decision.Simulated)

	return &QueryOutcome{
		Answer:     answer,
		Sources:    sources,
		Settlement: settlement,
		Simulated:  decision.Simulated,
	}, nil, nil
}

const excerptLength = 240

func excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= excerptLength {
		return text
	}
	return string(runes[:excerptLength]) + "…"
}
