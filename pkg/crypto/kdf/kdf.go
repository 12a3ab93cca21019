// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-seal.
//
// go-seal is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package kdf implements the domain-separated hash functions that bind key
// material to identities, key servers and purposes.
//
// Every function is a pure SHA3-256 computation over a fixed-order
// concatenation prefixed with its own domain separation tag, so outputs of
// one function can never collide with inputs of another.
package kdf

import (
	"errors"
	"fmt"

	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/pairing"
	"golang.org/x/crypto/sha3"
)

const (
	// DSTHashToGroup separates identity hashing onto G1.
	DSTHashToGroup = "SUI-SEAL-IBE-BLS12381-00"

	// DSTKDF separates the per-server share mask derivation.
	DSTKDF = "SUI-SEAL-IBE-BLS12381-H2-00"

	// DSTDeriveKey separates the base-key derivation.
	DSTDeriveKey = "SUI-SEAL-IBE-BLS12381-H3-00"

	// Size is the output length of KDF and DeriveKey.
	Size = 32

	// ServerIDSize is the length of a key server identifier.
	ServerIDSize = 32
)

// ErrInvalidConfiguration indicates an out-of-range index, threshold or purpose.
var ErrInvalidConfiguration = errors.New("kdf: invalid configuration")

// Purpose selects what a key derived from the base key is used for.
type Purpose byte

const (
	// PurposeEncryptedRandomness derives the mask for the encapsulation randomness.
	PurposeEncryptedRandomness Purpose = 0

	// PurposeDataKey derives the data encapsulation key.
	PurposeDataKey Purpose = 1
)

// String returns a human readable purpose name.
func (p Purpose) String() string {
	switch p {
	case PurposeEncryptedRandomness:
		return "encrypted-randomness"
	case PurposeDataKey:
		return "data-key"
	default:
		return fmt.Sprintf("purpose(%d)", byte(p))
	}
}

// HashToGroup maps an identity onto G1.
func HashToGroup(identity []byte) *pairing.G1 {
	return pairing.HashToG1(identity, []byte(DSTHashToGroup))
}

// KDF derives the XOR mask protecting one server's share:
//
//	SHA3-256(DSTKDF || element || nonce || HashToGroup(identity) || serverID || index)
func KDF(element *pairing.GT, nonce *pairing.G2, identity []byte, serverID [ServerIDSize]byte, index int) ([]byte, error) {
	if index < 0 || index > 255 {
		return nil, fmt.Errorf("%w: share index %d out of range [0,255]", ErrInvalidConfiguration, index)
	}
	if element == nil || nonce == nil {
		return nil, fmt.Errorf("%w: nil group element", ErrInvalidConfiguration)
	}

	h := sha3.New256()
	h.Write([]byte(DSTKDF))
	h.Write(element.Bytes())
	h.Write(nonce.Bytes())
	h.Write(HashToGroup(identity).Bytes())
	h.Write(serverID[:])
	h.Write([]byte{byte(index)})
	return h.Sum(nil), nil
}

// DeriveKey derives a purpose-bound key from the base key and the public
// parts of the encapsulation:
//
//	SHA3-256(DSTDeriveKey || baseKey || purpose || threshold || shares... || serverIDs...)
func DeriveKey(purpose Purpose, baseKey []byte, encryptedShares [][]byte, threshold int, serverIDs [][ServerIDSize]byte) ([]byte, error) {
	if purpose != PurposeEncryptedRandomness && purpose != PurposeDataKey {
		return nil, fmt.Errorf("%w: unknown purpose %d", ErrInvalidConfiguration, byte(purpose))
	}
	if threshold < 1 || threshold > 255 {
		return nil, fmt.Errorf("%w: threshold %d out of range [1,255]", ErrInvalidConfiguration, threshold)
	}
	if len(encryptedShares) != len(serverIDs) {
		return nil, fmt.Errorf("%w: %d shares for %d servers", ErrInvalidConfiguration, len(encryptedShares), len(serverIDs))
	}

	h := sha3.New256()
	h.Write([]byte(DSTDeriveKey))
	h.Write(baseKey)
	h.Write([]byte{byte(purpose)})
	h.Write([]byte{byte(threshold)})
	for _, share := range encryptedShares {
		h.Write(share)
	}
	for _, id := range serverIDs {
		h.Write(id[:])
	}
	return h.Sum(nil), nil
}

// XOR returns a XOR b. The inputs must have equal length.
func XOR(a, b []byte) ([]byte, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: xor of %d and %d bytes", ErrInvalidConfiguration, len(a), len(b))
	}
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out, nil
}
