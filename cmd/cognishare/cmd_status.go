// Copyright (C) 2025 CogniShare Protocol (dev@cognishare.network)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/cognishare/cognishare/services/knowledge"
	"github.com/cognishare/cognishare/services/payments"
)

var statusJSONOutput bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display the settlement gateway's operational status",
	Long: `Queries a running gateway for its payment engine status, lifetime
settlement analytics, and knowledge store contents.

Examples:
  cognishare status           # Human-readable report
  cognishare status --json    # JSON output for scripting`,
	RunE: runStatusCommand,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSONOutput, "json", false,
		"Output as JSON for scripting")
	rootCmd.AddCommand(statusCmd)
}

// gatewayStatus is everything `status` collects from the gateway.
type gatewayStatus struct {
	Payments  payments.StatusReport    `json:"payments"`
	Analytics payments.AnalyticsReport `json:"analytics"`
	Documents knowledge.StoreStats     `json:"documents"`
}

func runStatusCommand(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 10 * time.Second}

	var report gatewayStatus
	if err := fetchJSON(client, config.GatewayURL+"/v1/payments/status", &report.Payments); err != nil {
		return fmt.Errorf("gateway unreachable at %s: %w", config.GatewayURL, err)
	}
	if err := fetchJSON(client, config.GatewayURL+"/v1/payments/analytics", &report.Analytics); err != nil {
		return err
	}
	if err := fetchJSON(client, config.GatewayURL+"/v1/documents/stats", &report.Documents); err != nil {
		return err
	}

	if statusJSONOutput {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Settlement engine\n")
	fmt.Fprintf(w, "  Mode:          %s\n", report.Payments.Mode)
	fmt.Fprintf(w, "  Backend:       %s\n", report.Payments.Backend)
	fmt.Fprintf(w, "  Reachable:     %t\n", report.Payments.Reachable)
	fmt.Fprintf(w, "  Balance:       %.4f CRO\n", report.Payments.BalanceCRO)
	fmt.Fprintf(w, "Lifetime analytics\n")
	fmt.Fprintf(w, "  Settlements:   %d\n", report.Analytics.Settlements)
	fmt.Fprintf(w, "  Citations:     %d\n", report.Analytics.TotalCitations)
	fmt.Fprintf(w, "  Paid:          %.4f CRO\n", report.Analytics.TotalPaidCRO)
	fmt.Fprintf(w, "  Authors:       %d\n", report.Analytics.ActiveAuthors)
	fmt.Fprintf(w, "  Failed:        %d\n", report.Analytics.FailedAttempts)
	fmt.Fprintf(w, "Knowledge store\n")
	fmt.Fprintf(w, "  Backend:       %s\n", report.Documents.Backend)
	fmt.Fprintf(w, "  Chunks:        %d\n", report.Documents.ChunkCount)
	fmt.Fprintf(w, "  Authors:       %d\n", report.Documents.AuthorCount)
	return nil
}

func fetchJSON(client *http.Client, url string, out any) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
