// Copyright (C) 2025 CogniShare Protocol (dev@cognishare.network)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package payments

// Decision is the gating outcome for one settlement result.
type Decision struct {
	// Proceed is the pay-before-answer permit: generation may only be
	// invoked when true.
	Proceed bool

	// Reason is the human-readable denial reason; empty when Proceed.
	Reason string

	// Simulated flags a permit that is not backed by real compensation.
	// Callers must propagate it to the user, never hide it.
	Simulated bool
}

// Decide applies the gating policy to a settlement result. It is a pure
// function of OverallSuccess and the backend mode.
//
// Enforcing: proceed iff at least one author was compensated. A fully
// failed batch halts the entire request; there is no best-effort answer.
//
// Simulated: always proceed, with the provenance flag set so the caller can
// warn that the run was a demonstration.
func Decide(result *SettlementResult) Decision {
	if result.Simulated {
		return Decision{Proceed: true, Simulated: true}
	}
	if result.OverallSuccess {
		return Decision{Proceed: true}
	}

	reason := "no author could be compensated"
	if len(result.Attempts) == 0 {
		reason = "no payable authors in the citation set"
	}
	return Decision{Proceed: false, Reason: reason}
}

// Gate is Decide plus the hard stop: when the decision denies, it returns a
// *SettlementDeniedError carrying the result for diagnostics.
func Gate(result *SettlementResult) (Decision, error) {
	decision := Decide(result)
	if !decision.Proceed {
		return decision, &SettlementDeniedError{Reason: decision.Reason, Result: result}
	}
	return decision, nil
}
