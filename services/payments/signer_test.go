// Copyright (C) 2025 CogniShare Protocol (dev@cognishare.network)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package payments

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testPrivateKey is the first well-known hardhat development key; its funds
// and address are public knowledge and it must never hold real value.
const (
	testPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testKeyAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func TestNewSigner(t *testing.T) {
	signer, err := NewSigner(testPrivateKey)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testKeyAddress), signer.Address())

	// A 0x prefix and surrounding whitespace are tolerated.
	prefixed, err := NewSigner(" 0x" + testPrivateKey + " ")
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), prefixed.Address())
}

func TestNewSigner_InvalidKey(t *testing.T) {
	for _, key := range []string{"", "zzzz", "0x1234"} {
		_, err := NewSigner(key)
		assert.Error(t, err, "key %q must be rejected", key)
	}
}

func TestSigner_SignTx(t *testing.T) {
	signer, err := NewSigner(testPrivateKey)
	require.NoError(t, err)

	to := common.HexToAddress(walletB)
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    3,
		To:       &to,
		Value:    CROToWei(0.01),
		Gas:      21_000,
		GasPrice: big.NewInt(5_000_000_000),
	})

	chainID := big.NewInt(DefaultTestnetChainID)
	signed, err := signer.SignTx(tx, chainID)
	require.NoError(t, err)

	from, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), from, "signature must recover to the configured sender")
}
