// Copyright (C) 2025 CogniShare Protocol (dev@cognishare.network)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/cognishare/cognishare/pkg/logging"
)

var (
	config     Config
	configPath string
	logger     *logging.Logger

	rootCmd = &cobra.Command{
		Use:   "cognishare",
		Short: "A CLI to inspect the CogniShare settlement gateway",
		Long: `CogniShare pays knowledge authors per citation before an answer is
generated. This CLI inspects a running gateway and verifies the on-chain
citation registry without routing any value.`,
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml",
		"Path to the CLI configuration file")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(configPath)
		if err != nil {
			return err
		}
		config = cfg

		logger = logging.New(logging.Config{
			Level:   logging.LevelInfo,
			LogDir:  config.LogDir,
			Service: "cli",
		})
		return nil
	}

	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Close()
		}
	}
}
