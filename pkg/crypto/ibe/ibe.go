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

// Package ibe implements Boneh-Franklin identity-based key encapsulation over
// BLS12-381, batched across a set of key servers.
//
// Hashed identities and user secret keys live in G1; server public keys and
// the encapsulation nonce live in G2. A single random scalar r is shared by
// every server in the batch, which makes the nonce G2*r an integrity anchor:
// a decryptor who recovers r can check it against the stored nonce.
package ibe

import (
	"errors"
	"fmt"
	"io"

	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/kdf"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/pairing"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/secretsharing"
)

var (
	// ErrInvalidConfiguration indicates mismatched or empty batch inputs.
	ErrInvalidConfiguration = errors.New("ibe: invalid configuration")

	// ErrInvalidRandomness is returned when the decrypted randomness is not a
	// canonical scalar, which only happens under a wrong base key.
	ErrInvalidRandomness = errors.New("ibe: invalid decrypted randomness")
)

// Encryptions is the per-object output of EncryptBatched.
type Encryptions struct {
	Nonce               *pairing.G2
	EncryptedShares     [][]byte
	EncryptedRandomness []byte
}

// EncapBatched draws r and derives one pairing key per public key:
//
//	nonce   = G2 * r
//	keys[i] = e(H(identity) * r, publicKeys[i])
func EncapBatched(rand io.Reader, publicKeys []*pairing.G2, identity []byte) (*pairing.Scalar, *pairing.G2, []*pairing.GT, error) {
	if len(publicKeys) == 0 {
		return nil, nil, nil, fmt.Errorf("%w: no public keys", ErrInvalidConfiguration)
	}
	for i, pk := range publicKeys {
		if pk == nil {
			return nil, nil, nil, fmt.Errorf("%w: public key %d is nil", ErrInvalidConfiguration, i)
		}
	}

	r, err := pairing.RandomScalar(rand)
	if err != nil {
		return nil, nil, nil, err
	}

	nonce := pairing.G2Generator().Mul(r)
	gidR := kdf.HashToGroup(identity).Mul(r)

	keys := make([]*pairing.GT, len(publicKeys))
	for i, pk := range publicKeys {
		keys[i] = pairing.Pair(gidR, pk)
	}
	return r, nonce, keys, nil
}

// EncryptBatched encrypts each share for its server and masks r under a key
// derived from baseKey, so that recovering baseKey also recovers r.
func EncryptBatched(
	rand io.Reader,
	publicKeys []*pairing.G2,
	identity []byte,
	shares []secretsharing.Share,
	baseKey []byte,
	threshold int,
	serverIDs [][kdf.ServerIDSize]byte,
) (*Encryptions, error) {
	n := len(publicKeys)
	if n == 0 || n != len(shares) || n != len(serverIDs) {
		return nil, fmt.Errorf("%w: %d public keys, %d shares, %d server ids",
			ErrInvalidConfiguration, n, len(shares), len(serverIDs))
	}

	r, nonce, keys, err := EncapBatched(rand, publicKeys, identity)
	if err != nil {
		return nil, err
	}

	encShares := make([][]byte, n)
	for i, share := range shares {
		mask, err := kdf.KDF(keys[i], nonce, identity, serverIDs[i], int(share.Index))
		if err != nil {
			return nil, err
		}
		if encShares[i], err = kdf.XOR(share.Data, mask); err != nil {
			return nil, fmt.Errorf("%w: share %d: %w", ErrInvalidConfiguration, share.Index, err)
		}
	}

	randKey, err := kdf.DeriveKey(kdf.PurposeEncryptedRandomness, baseKey, encShares, threshold, serverIDs)
	if err != nil {
		return nil, err
	}
	encRandomness, err := kdf.XOR(r.Bytes(), randKey)
	if err != nil {
		return nil, err
	}

	return &Encryptions{
		Nonce:               nonce,
		EncryptedShares:     encShares,
		EncryptedRandomness: encRandomness,
	}, nil
}

// DecryptShare recovers one share from its encryption using the server's
// user secret key for identity.
func DecryptShare(nonce *pairing.G2, usk *pairing.G1, encryptedShare, identity []byte, serverID [kdf.ServerIDSize]byte, index int) ([]byte, error) {
	if nonce == nil || usk == nil {
		return nil, fmt.Errorf("%w: nil nonce or key", ErrInvalidConfiguration)
	}
	mask, err := kdf.KDF(pairing.Pair(usk, nonce), nonce, identity, serverID, index)
	if err != nil {
		return nil, err
	}
	return kdf.XOR(encryptedShare, mask)
}

// DecryptRandomness unmasks r using a candidate base key.
func DecryptRandomness(enc *Encryptions, baseKey []byte, threshold int, serverIDs [][kdf.ServerIDSize]byte) (*pairing.Scalar, error) {
	randKey, err := kdf.DeriveKey(kdf.PurposeEncryptedRandomness, baseKey, enc.EncryptedShares, threshold, serverIDs)
	if err != nil {
		return nil, err
	}
	raw, err := kdf.XOR(enc.EncryptedRandomness, randKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRandomness, err)
	}
	r, err := pairing.ScalarFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRandomness, err)
	}
	return r, nil
}

// VerifyNonce reports whether nonce == G2 * r.
func VerifyNonce(nonce *pairing.G2, r *pairing.Scalar) bool {
	if nonce == nil || r == nil {
		return false
	}
	return pairing.G2Generator().Mul(r).Equal(nonce)
}
