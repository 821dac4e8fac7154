// Copyright (C) 2025 CogniShare Protocol (dev@cognishare.network)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package payments

import (
	"context"
	"log/slog"
	"os"
	"strconv"
)

// Config is the settlement configuration surface, normally populated from
// the environment.
type Config struct {
	Chain ChainConfig

	// ContractDataPath locates the persisted registry descriptor. Empty
	// silently selects the direct-transfer variant.
	ContractDataPath string

	// RatePerCitationCRO is the per-citation compensation rate.
	RatePerCitationCRO float64

	// ServiceFeeWallet and ServiceFeeCRO configure the flat per-call
	// data-service charge. Empty wallet disables the fee path.
	ServiceFeeWallet string
	ServiceFeeCRO    float64
}

// Rate defaults mirror the protocol's demo economics: 0.01 CRO per
// citation, 0.05 CRO per premium data call.
const (
	DefaultRatePerCitationCRO = 0.01
	DefaultServiceFeeCRO      = 0.05
)

// ConfigFromEnv reads the settlement configuration, logging every default
// it falls back to.
func ConfigFromEnv() Config {
	cfg := Config{
		Chain: ChainConfig{
			RPCURL:        os.Getenv("CRONOS_RPC_URL"),
			PrivateKeyHex: os.Getenv("CRONOS_PRIVATE_KEY"),
			Network:       os.Getenv("COGNISHARE_NETWORK"),
		},
		ContractDataPath: os.Getenv("CONTRACT_DATA_PATH"),
		ServiceFeeWallet: os.Getenv("SERVICE_FEE_WALLET"),
	}

	if cfg.Chain.Network == "" {
		cfg.Chain.Network = "testnet"
	}

	if raw := os.Getenv("CRONOS_CHAIN_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			slog.Warn("CRONOS_CHAIN_ID is not an integer, using testnet default",
				"value", raw, "default", DefaultTestnetChainID)
			id = DefaultTestnetChainID
		}
		cfg.Chain.ChainID = id
	} else {
		cfg.Chain.ChainID = DefaultTestnetChainID
	}

	cfg.RatePerCitationCRO = floatEnv("CITATION_RATE_CRO", DefaultRatePerCitationCRO)
	cfg.ServiceFeeCRO = floatEnv("SERVICE_FEE_CRO", DefaultServiceFeeCRO)
	return cfg
}

func floatEnv(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		slog.Warn("Invalid rate in environment, using default",
			"key", key, "value", raw, "default", fallback)
		return fallback
	}
	return v
}

// Bootstrap assembles the settlement engine, deciding the operating mode
// once by probing credential presence and backend connectivity:
//
//   - no signing key, unparseable key, or unreachable RPC endpoint
//     -> simulated mode over the fabricating backend;
//   - reachable endpoint -> enforcing mode, with the registry-contract
//     variant activated only if the persisted descriptor survives schema
//     validation and a read-only health call.
//
// Bootstrap never fails the process: every degradation is logged with its
// reason and the engine comes up in the best mode it can honestly claim.
// The returned chain client is nil in simulated mode.
func Bootstrap(ctx context.Context, cfg Config) (*Engine, *ChainClient) {
	reporter := NewReporter()

	simulated := func(reason string) (*Engine, *ChainClient) {
		slog.Warn("Settlement engine starting in simulated mode", "reason", reason)
		return NewEngine(NewSimulatedBackend(), ModeSimulated, reporter), nil
	}

	if cfg.Chain.PrivateKeyHex == "" {
		return simulated("CRONOS_PRIVATE_KEY not set")
	}

	signer, err := NewSigner(cfg.Chain.PrivateKeyHex)
	if err != nil {
		return simulated("signing key invalid: " + err.Error())
	}

	chain, err := DialChain(ctx, cfg.Chain, signer)
	if err != nil {
		return simulated("chain unreachable: " + err.Error())
	}

	decision := SelectRegistry(ctx, chain, cfg.ContractDataPath)
	backend := NewChainBackend(chain, decision.Registry)

	slog.Info("Settlement engine starting in enforcing mode",
		"backend", backend.Kind(),
		"sender", chain.Address().Hex(),
		"registry_reason", decision.Reason)
	return NewEngine(backend, ModeEnforcing, reporter), chain
}
