// Copyright (C) 2025 CogniShare Protocol (dev@cognishare.network)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cognishare/cognishare/services/payments"
)

var contractDescriptorPath string

var contractCmd = &cobra.Command{
	Use:   "contract",
	Short: "Inspect the citation registry contract",
}

var contractVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Validate the registry descriptor and probe the deployed contract",
	Long: `Runs the same registry selection the gateway performs at startup:
descriptor schema validation, address and ABI checks, and a read-only
getGlobalStats call against the configured RPC endpoint. No transactions
are signed or sent.

Examples:
  cognishare contract verify
  cognishare contract verify --descriptor deploy/registry.json`,
	RunE: runContractVerifyCommand,
}

func init() {
	contractVerifyCmd.Flags().StringVar(&contractDescriptorPath, "descriptor", "",
		"Path to the registry descriptor (defaults to registry_descriptor from config)")
	contractCmd.AddCommand(contractVerifyCmd)
	rootCmd.AddCommand(contractCmd)
}

func runContractVerifyCommand(cmd *cobra.Command, args []string) error {
	descriptorPath := contractDescriptorPath
	if descriptorPath == "" {
		descriptorPath = config.RegistryDescriptor
	}
	if descriptorPath == "" {
		return fmt.Errorf("no registry descriptor configured; pass --descriptor or set registry_descriptor in %s", configPath)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	// Read-only verification needs no signing key.
	chain, err := payments.DialChain(ctx, payments.ChainConfig{
		RPCURL:  config.Chain.RPCURL,
		ChainID: config.Chain.ChainID,
		Network: config.Chain.Network,
	}, nil)
	if err != nil {
		return fmt.Errorf("chain RPC unreachable: %w", err)
	}
	defer chain.Close()

	decision := payments.SelectRegistry(ctx, chain, descriptorPath)

	w := cmd.OutOrStdout()
	switch decision.Path {
	case payments.PathContract:
		fmt.Fprintf(w, "Registry contract verified\n")
		fmt.Fprintf(w, "  Address:  %s\n", decision.Registry.Address.Hex())
		fmt.Fprintf(w, "  Chain ID: %s\n", chain.ChainID().String())
		fmt.Fprintf(w, "  Network:  %s\n", config.Chain.Network)
		return nil
	default:
		return fmt.Errorf("registry rejected, gateway would fall back to direct transfers: %s", decision.Reason)
	}
}
