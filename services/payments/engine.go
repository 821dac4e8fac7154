// Copyright (C) 2025 CogniShare Protocol (dev@cognishare.network)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package payments

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// engineTracer is the OpenTelemetry tracer for settlement operations.
var engineTracer = otel.Tracer("cognishare.payments.engine")

// AttemptListener observes every recorded payment attempt. Listeners feed
// the live settlement websocket and the prometheus counters; they must not
// block.
type AttemptListener func(PaymentAttempt)

// Engine drives settlement batches against one payment backend. It owns the
// backend instance for its lifetime, serializes batches so nonce assignment
// stays strictly ordered, and holds the operating-mode state machine.
//
// Engine is safe for concurrent use; concurrent Settle calls queue on an
// internal mutex.
type Engine struct {
	mu        sync.Mutex
	backend   PaymentBackend
	mode      Mode
	reporter  *Reporter
	listeners []AttemptListener
}

// NewEngine builds an engine over the given backend in the given mode.
// The reporter may be nil when analytics are not needed (tests).
func NewEngine(backend PaymentBackend, mode Mode, reporter *Reporter) *Engine {
	return &Engine{
		backend:  backend,
		mode:     mode,
		reporter: reporter,
	}
}

// OnAttempt registers an attempt listener. Register before serving traffic;
// registration is not synchronized with in-flight batches.
func (e *Engine) OnAttempt(l AttemptListener) {
	e.listeners = append(e.listeners, l)
}

// Reporter exposes the analytics accumulator the engine records into.
func (e *Engine) Reporter() *Reporter {
	return e.reporter
}

// Mode returns the current operating mode.
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// BackendKind returns the current backend's strategy.
func (e *Engine) BackendKind() BackendKind {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.backend.Kind()
}

// Settle compensates every aggregate in input order and reports the batch
// outcome.
//
// The resilience contract: one attempt's failure never aborts the batch,
// and the batch-level result is a normal value, not an error. The only
// errors returned are context cancellations observed between attempts.
//
// In enforcing mode OverallSuccess is true iff at least one attempt was
// sent; an empty batch is a failed batch (nothing was compensated). In
// simulated mode OverallSuccess is always true and attempts carry fabricated
// references, so the result shape is identical either way.
//
// If every attempt of a non-empty batch fails with a connectivity-class
// error, the engine concludes the backend is gone and trips itself into
// simulated mode for the remainder of the process lifetime. The current
// batch still reports its real (failed) outcome; recovery to enforcing is
// restart-only.
func (e *Engine) Settle(ctx context.Context, aggregates []AuthorPaymentAggregate) (*SettlementResult, error) {
	ctx, span := engineTracer.Start(ctx, "Engine.Settle")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	span.SetAttributes(
		attribute.Int("settlement.aggregates", len(aggregates)),
		attribute.String("settlement.mode", e.mode.String()),
	)

	result, err := e.settleLocked(ctx, aggregates)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "settlement aborted")
		return nil, err
	}

	span.SetAttributes(
		attribute.Bool("settlement.overall_success", result.OverallSuccess),
		attribute.Int("settlement.sent", result.UniqueAuthorsPaid),
		attribute.Float64("settlement.total_paid_cro", result.TotalPaidCRO),
	)
	return result, nil
}

// SettleServiceFee charges a flat fee to a single service wallet, reusing
// the settlement machinery (one aggregate, one attempt). Used for per-call
// data-service charges.
func (e *Engine) SettleServiceFee(ctx context.Context, wallet string, amountCRO float64, memo string) (*SettlementResult, error) {
	ctx, span := engineTracer.Start(ctx, "Engine.SettleServiceFee")
	defer span.End()

	if err := ValidateWallet(wallet); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid service wallet")
		return nil, err
	}

	canonical := CanonicalWallet(wallet)
	sum := sha256.Sum256([]byte(canonical + "|" + memo))
	fee := AuthorPaymentAggregate{
		AuthorWallet:   canonical,
		CitationCount:  1,
		TotalAmountCRO: amountCRO,
		ContentDigest:  "0x" + hex.EncodeToString(sum[:]),
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settleLocked(ctx, []AuthorPaymentAggregate{fee})
}

// settleLocked runs one batch. Caller holds e.mu.
func (e *Engine) settleLocked(ctx context.Context, aggregates []AuthorPaymentAggregate) (*SettlementResult, error) {
	result := &SettlementResult{
		Attempts:    make([]PaymentAttempt, 0, len(aggregates)),
		BackendMode: e.backend.Kind(),
		Simulated:   e.mode == ModeSimulated,
	}

	if len(aggregates) == 0 {
		// Nothing to settle. Enforcing mode treats that as "no
		// compensation occurred" and must not silently permit generation.
		result.OverallSuccess = e.mode == ModeSimulated
		return result, nil
	}

	counter, baseErr := e.beginBatch(ctx)

	unavailableCount := 0
	for _, agg := range aggregates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		attempt := PaymentAttempt{
			AuthorWallet:  agg.AuthorWallet,
			AmountCRO:     agg.TotalAmountCRO,
			CitationCount: agg.CitationCount,
			SubmittedAt:   time.Now().UTC(),
		}

		switch {
		case baseErr != nil:
			// The batch never acquired a base nonce: every attempt fails
			// with the same error, nothing is submitted. Only a
			// connectivity-class failure counts toward the mode trip; a
			// reachable endpoint rejecting the nonce query must not
			// abandon enforcing mode.
			attempt.Status = AttemptFailed
			attempt.Error = baseErr.Error()
			if IsBackendUnavailable(baseErr) {
				unavailableCount++
			}
		default:
			receipt, err := e.backend.Submit(ctx, SubmitRequest{
				Wallet:        agg.AuthorWallet,
				AmountCRO:     agg.TotalAmountCRO,
				ContentDigest: agg.ContentDigest,
				Nonce:         counter.Next(),
			})
			if err != nil {
				attempt.Status = AttemptFailed
				attempt.Error = err.Error()
				if IsBackendUnavailable(err) {
					unavailableCount++
				}
				slog.Error("Payment attempt failed",
					"wallet", agg.AuthorWallet,
					"amount_cro", agg.TotalAmountCRO,
					"error", err)
			} else {
				attempt.Status = AttemptSent
				attempt.TxHash = receipt.TxHash
				attempt.Path = receipt.Path
				result.TotalPaidCRO += agg.TotalAmountCRO
				result.UniqueAuthorsPaid++
				slog.Info("Paid author",
					"wallet", agg.AuthorWallet,
					"amount_cro", agg.TotalAmountCRO,
					"tx_hash", receipt.TxHash,
					"path", receipt.Path)
			}
		}

		result.Attempts = append(result.Attempts, attempt)
		e.publish(attempt)
	}

	if e.mode == ModeSimulated {
		result.OverallSuccess = true
	} else {
		result.OverallSuccess = result.SentCount() >= 1
	}

	if e.reporter != nil {
		e.reporter.RecordBatch(result)
	}

	// Total unreachability: every attempt failed on connectivity. The
	// backend is gone; degrade to simulated for the rest of the process.
	if e.mode == ModeEnforcing && unavailableCount == len(aggregates) {
		e.tripSimulatedLocked()
	}

	return result, nil
}

// beginBatch creates the per-batch nonce counter from the backend's base
// nonce. On failure the counter is nil and the error is reported per
// attempt by the caller.
func (e *Engine) beginBatch(ctx context.Context) (*NonceCounter, error) {
	base, err := e.backend.BaseNonce(ctx)
	if err != nil {
		return nil, err
	}
	return NewNonceCounter(base), nil
}

// tripSimulatedLocked is the single mode transition: Enforcing -> Simulated.
// Caller holds e.mu.
func (e *Engine) tripSimulatedLocked() {
	slog.Error("Payment backend unreachable for an entire batch, switching to simulated mode for the remainder of the process")
	e.mode = ModeSimulated
	e.backend = NewSimulatedBackend()
}

// publish fans an attempt out to the registered listeners.
func (e *Engine) publish(attempt PaymentAttempt) {
	for _, l := range e.listeners {
		l(attempt)
	}
}

// Status reports the engine's operational state: mode, backend kind,
// reachability, and sender balance when a real backend is active.
func (e *Engine) Status(ctx context.Context) StatusReport {
	e.mu.Lock()
	backend := e.backend
	mode := e.mode
	e.mu.Unlock()

	report := StatusReport{
		Mode:    mode.String(),
		Backend: backend.Kind(),
	}
	report.Reachable = backend.Probe(ctx) == nil

	if reader, ok := backend.(interface {
		BalanceCRO(context.Context) (float64, error)
	}); ok && report.Reachable {
		if balance, err := reader.BalanceCRO(ctx); err == nil {
			report.BalanceCRO = balance
		}
	}
	return report
}
