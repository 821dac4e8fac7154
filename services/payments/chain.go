// Copyright (C) 2025 CogniShare Protocol (dev@cognishare.network)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/time/rate"
)

// Cronos testnet defaults, used when no RPC configuration is supplied.
const (
	DefaultTestnetRPC     = "https://evm-t3.cronos.org"
	DefaultTestnetChainID = 338
)

const (
	// rpcCallTimeout bounds every individual RPC round trip. A slow chain
	// endpoint degrades to a per-attempt failure, never a hung batch.
	rpcCallTimeout = 10 * time.Second

	// submitRatePerSecond throttles transaction submission so a large batch
	// cannot hammer a public RPC endpoint.
	submitRatePerSecond = 5
)

// ChainConfig describes how to reach the value-transfer network.
type ChainConfig struct {
	RPCURL        string
	ChainID       int64
	PrivateKeyHex string

	// Network selects the explorer base (testnet or mainnet).
	Network string
}

// ChainClient wraps an EVM JSON-RPC endpoint together with the sender's
// signer. It is the single place raw chain calls happen; the backend layer
// above translates its failures into the settlement error taxonomy.
//
// ChainClient is safe for concurrent use.
type ChainClient struct {
	rpc     *ethclient.Client
	signer  *Signer
	chainID *big.Int
	limiter *rate.Limiter
}

// DialChain connects to the configured RPC endpoint and verifies it answers
// a chain-id query. A connection or probe failure is returned as a
// *BackendUnavailableError so the bootstrap can degrade to simulated mode
// instead of crashing.
func DialChain(ctx context.Context, cfg ChainConfig, signer *Signer) (*ChainClient, error) {
	rpcURL := cfg.RPCURL
	if rpcURL == "" {
		rpcURL = DefaultTestnetRPC
		slog.Warn("CRONOS_RPC_URL not set, using Cronos testnet default", "url", rpcURL)
	}

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, &BackendUnavailableError{Op: "dial", Err: err}
	}

	probeCtx, cancel := context.WithTimeout(ctx, rpcCallTimeout)
	defer cancel()
	reported, err := client.ChainID(probeCtx)
	if err != nil {
		client.Close()
		return nil, &BackendUnavailableError{Op: "chain_id", Err: err}
	}

	chainID := reported
	if cfg.ChainID != 0 {
		chainID = big.NewInt(cfg.ChainID)
		if reported.Cmp(chainID) != 0 {
			slog.Warn("Configured chain id disagrees with RPC endpoint",
				"configured", cfg.ChainID, "reported", reported.String())
		}
	}

	slog.Info("Connected to chain RPC", "url", rpcURL, "chain_id", chainID.String())
	return &ChainClient{
		rpc:     client,
		signer:  signer,
		chainID: chainID,
		limiter: rate.NewLimiter(rate.Limit(submitRatePerSecond), 1),
	}, nil
}

// Address returns the sender address.
func (c *ChainClient) Address() common.Address {
	return c.signer.Address()
}

// ChainID returns the chain identifier transactions are signed for.
func (c *ChainClient) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// Probe performs a cheap liveness check against the RPC endpoint.
func (c *ChainClient) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, rpcCallTimeout)
	defer cancel()
	if _, err := c.rpc.ChainID(ctx); err != nil {
		return &BackendUnavailableError{Op: "probe", Err: err}
	}
	return nil
}

// PendingNonce returns the sender's next nonce including pending
// transactions, which is what keeps consecutive batches from colliding.
func (c *ChainClient) PendingNonce(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, rpcCallTimeout)
	defer cancel()
	nonce, err := c.rpc.PendingNonceAt(ctx, c.signer.Address())
	if err != nil {
		return 0, classifyRPCError("pending_nonce", "", err)
	}
	return nonce, nil
}

// SuggestGasPrice returns the endpoint's current gas price suggestion.
func (c *ChainClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, rpcCallTimeout)
	defer cancel()
	price, err := c.rpc.SuggestGasPrice(ctx)
	if err != nil {
		return nil, classifyRPCError("gas_price", "", err)
	}
	return price, nil
}

// BalanceCRO returns the sender's balance in whole CRO.
func (c *ChainClient) BalanceCRO(ctx context.Context) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, rpcCallTimeout)
	defer cancel()
	wei, err := c.rpc.BalanceAt(ctx, c.signer.Address(), nil)
	if err != nil {
		return 0, classifyRPCError("balance", "", err)
	}
	return WeiToCRO(wei), nil
}

// SignAndSend signs the transaction with the sealed key and broadcasts it.
// Submission is rate limited.
func (c *ChainClient) SignAndSend(ctx context.Context, tx *types.Transaction, wallet string) (common.Hash, error) {
	signed, err := c.signer.SignTx(tx, c.chainID)
	if err != nil {
		return common.Hash{}, &TransferError{Wallet: wallet, Err: err}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return common.Hash{}, &BackendUnavailableError{Op: "submit", Err: err}
	}

	sendCtx, cancel := context.WithTimeout(ctx, rpcCallTimeout)
	defer cancel()
	if err := c.rpc.SendTransaction(sendCtx, signed); err != nil {
		return common.Hash{}, classifyRPCError("submit", wallet, err)
	}
	return signed.Hash(), nil
}

// CallView executes a read-only contract call.
func (c *ChainClient) CallView(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, rpcCallTimeout)
	defer cancel()
	out, err := c.rpc.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, classifyRPCError("call", "", err)
	}
	return out, nil
}

// Close releases the underlying RPC connection.
func (c *ChainClient) Close() {
	c.rpc.Close()
}

// classifyRPCError sorts a chain failure into the settlement taxonomy.
// An rpc.Error means the endpoint answered and rejected the request
// (insufficient funds, bad nonce, reverted call): that is a TransferError
// scoped to the current attempt. Anything else is a transport problem and
// maps to BackendUnavailableError.
func classifyRPCError(op, wallet string, err error) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return &TransferError{Wallet: wallet, Err: fmt.Errorf("%s rejected: %w", op, err)}
	}
	return &BackendUnavailableError{Op: op, Err: err}
}

var weiPerCRO = new(big.Float).SetFloat64(1e18)

// CROToWei converts a CRO amount to wei.
func CROToWei(amount float64) *big.Int {
	wei, _ := new(big.Float).Mul(big.NewFloat(amount), weiPerCRO).Int(nil)
	return wei
}

// WeiToCRO converts wei to whole CRO.
func WeiToCRO(wei *big.Int) float64 {
	out, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), weiPerCRO).Float64()
	return out
}

// ExplorerTxURL builds a block-explorer link for a transaction hash.
func ExplorerTxURL(network, txHash string) string {
	if network == "mainnet" {
		return fmt.Sprintf("https://explorer.cronos.org/tx/%s", txHash)
	}
	return fmt.Sprintf("https://explorer.cronos.org/testnet3/tx/%s", txHash)
}
