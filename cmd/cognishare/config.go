// Copyright (C) 2025 CogniShare Protocol (dev@cognishare.network)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognishare/cognishare/services/payments"
)

// Config is the CLI configuration loaded from config.yaml. Every field
// has a working default so the CLI runs against a local stack with no
// config file at all.
type Config struct {
	// GatewayURL is the base URL of the settlement gateway.
	GatewayURL string `yaml:"gateway_url"`

	// RegistryDescriptor is the path to the deployed registry contract
	// artifact used by `cognishare contract verify`.
	RegistryDescriptor string `yaml:"registry_descriptor"`

	// LogDir enables CLI file logging when set.
	LogDir string `yaml:"log_dir"`

	Chain ChainSettings `yaml:"chain"`
}

// ChainSettings selects the RPC endpoint for read-only chain commands.
type ChainSettings struct {
	RPCURL  string `yaml:"rpc_url"`
	ChainID int64  `yaml:"chain_id"`
	Network string `yaml:"network"`
}

// DefaultConfig returns the configuration used when no config.yaml is
// present: local gateway, Cronos testnet.
func DefaultConfig() Config {
	return Config{
		GatewayURL: "http://localhost:12402",
		Chain: ChainSettings{
			RPCURL:  payments.DefaultTestnetRPC,
			ChainID: payments.DefaultTestnetChainID,
			Network: "testnet",
		},
	}
}

// LoadConfig reads the YAML file at path over the defaults. A missing
// file is not an error; a malformed one is.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}

	if cfg.GatewayURL == "" {
		cfg.GatewayURL = DefaultConfig().GatewayURL
	}
	if cfg.Chain.RPCURL == "" {
		cfg.Chain.RPCURL = payments.DefaultTestnetRPC
	}
	if cfg.Chain.ChainID == 0 {
		cfg.Chain.ChainID = payments.DefaultTestnetChainID
	}
	if cfg.Chain.Network == "" {
		cfg.Chain.Network = "testnet"
	}
	return cfg, nil
}
