// Copyright (C) 2025 CogniShare Protocol (dev@cognishare.network)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
)

// registryMethodPay and registryMethodStats are the registry interface
// methods a descriptor must expose before it is trusted.
const (
	registryMethodPay   = "payCitation"
	registryMethodStats = "getGlobalStats"
)

// RegistryDescriptor is the persisted contract artifact (address plus ABI)
// written at deployment time. It is the only persisted state the settlement
// core depends on, and it is schema-validated on load: a malformed
// descriptor degrades the backend to direct transfers, it never crashes the
// process.
type RegistryDescriptor struct {
	Address string          `json:"address" validate:"required"`
	ABI     json.RawMessage `json:"abi" validate:"required"`
	Network string          `json:"network"`
	ChainID int64           `json:"chain_id"`
}

// Registry is a validated, callable handle to the citation registry
// contract.
type Registry struct {
	Address common.Address
	ABI     abi.ABI
}

// PackPayCitation encodes a payCitation(author, contentDigest) call.
func (r *Registry) PackPayCitation(author common.Address, digest [32]byte) ([]byte, error) {
	return r.ABI.Pack(registryMethodPay, author, digest)
}

// GlobalStats reads the registry's on-chain citation totals.
func (r *Registry) GlobalStats(ctx context.Context, chain *ChainClient) (citations, paidWei *big.Int, err error) {
	data, err := r.ABI.Pack(registryMethodStats)
	if err != nil {
		return nil, nil, err
	}
	out, err := chain.CallView(ctx, r.Address, data)
	if err != nil {
		return nil, nil, err
	}
	vals, err := r.ABI.Unpack(registryMethodStats, out)
	if err != nil || len(vals) != 2 {
		return nil, nil, &ConfigurationError{Field: "abi", Reason: "getGlobalStats returned an unexpected shape"}
	}
	citations, _ = vals[0].(*big.Int)
	paidWei, _ = vals[1].(*big.Int)
	if citations == nil || paidWei == nil {
		return nil, nil, &ConfigurationError{Field: "abi", Reason: "getGlobalStats returned non-integer values"}
	}
	return citations, paidWei, nil
}

// RegistryDecision is the explicit outcome of registry selection: either the
// contract path with a usable handle, or the direct path with the reason the
// registry was rejected. Representing the fallback as data (instead of a
// swallowed exception) lets tests assert exactly which path was taken.
type RegistryDecision struct {
	Path     SubmissionPath
	Reason   string
	Registry *Registry
}

var descriptorValidator = validator.New()

// SelectRegistry decides once, at adapter initialization, whether the
// registry contract variant may be used. Every validation step that fails
// produces a direct-path decision with the specific reason, and the reason
// is logged; the adapter is never left claiming a registry it cannot call.
//
// Validation steps, in order: descriptor file present, JSON well formed,
// required fields present, address format valid, ABI parses, required
// methods present, read-only health call succeeds.
func SelectRegistry(ctx context.Context, chain *ChainClient, descriptorPath string) RegistryDecision {
	reject := func(field, reason string) RegistryDecision {
		cfgErr := &ConfigurationError{Field: field, Reason: reason}
		slog.Warn("Registry contract not activated, using direct transfers",
			"path", descriptorPath, "error", cfgErr.Error())
		return RegistryDecision{Path: PathDirect, Reason: cfgErr.Error()}
	}

	if descriptorPath == "" {
		return RegistryDecision{Path: PathDirect, Reason: "no registry descriptor configured"}
	}

	raw, err := os.ReadFile(descriptorPath)
	if err != nil {
		return reject("file", err.Error())
	}

	var desc RegistryDescriptor
	if err := json.Unmarshal(raw, &desc); err != nil {
		return reject("json", err.Error())
	}
	if err := descriptorValidator.Struct(&desc); err != nil {
		return reject("schema", err.Error())
	}
	if !common.IsHexAddress(desc.Address) {
		return reject("address", "not a 20-byte hex address")
	}

	parsedABI, err := abi.JSON(bytes.NewReader(desc.ABI))
	if err != nil {
		return reject("abi", err.Error())
	}
	for _, method := range []string{registryMethodPay, registryMethodStats} {
		if _, ok := parsedABI.Methods[method]; !ok {
			return reject("abi", "missing required method "+method)
		}
	}

	registry := &Registry{
		Address: common.HexToAddress(desc.Address),
		ABI:     parsedABI,
	}

	// Read-only health call proves the contract is actually deployed and
	// answering before we route value through it.
	citations, paidWei, err := registry.GlobalStats(ctx, chain)
	if err != nil {
		return reject("health", err.Error())
	}

	slog.Info("Registry contract activated",
		"address", registry.Address.Hex(),
		"citations_on_chain", citations.String(),
		"paid_wei_on_chain", paidWei.String())
	return RegistryDecision{Path: PathContract, Registry: registry}
}
