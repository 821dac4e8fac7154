// Copyright (C) 2025 CogniShare Protocol (dev@cognishare.network)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package payments

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/awnumar/memguard"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer holds the sender's signing credential in an mlocked memguard
// enclave and signs settlement transactions on demand. The raw key material
// only exists in plain form inside SignTx, in a locked buffer that is wiped
// as soon as signing completes.
//
// Signer is safe for concurrent use; the enclave is immutable after
// construction.
type Signer struct {
	enclave *memguard.Enclave
	address common.Address
}

// NewSigner validates the hex-encoded private key, derives the sender
// address, and seals the key away. The input string should be discarded by
// the caller afterwards.
func NewSigner(hexKey string) (*Signer, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if trimmed == "" {
		return nil, fmt.Errorf("signing key is empty")
	}

	key, err := crypto.HexToECDSA(trimmed)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing key: %w", err)
	}
	address := crypto.PubkeyToAddress(key.PublicKey)

	// NewEnclave wipes the byte slice it is handed.
	return &Signer{
		enclave: memguard.NewEnclave([]byte(trimmed)),
		address: address,
	}, nil
}

// Address returns the sender address derived from the sealed key.
func (s *Signer) Address() common.Address {
	return s.address
}

// SignTx signs a transaction for the given chain. The key is materialized
// in a locked buffer for the duration of the call only.
func (s *Signer) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	buf, err := s.enclave.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open signing key enclave: %w", err)
	}
	defer buf.Destroy()

	key, err := crypto.HexToECDSA(buf.String())
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing key: %w", err)
	}

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return signed, nil
}
