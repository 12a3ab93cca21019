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

package ibe

import (
	"io"

	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/kdf"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/pairing"
)

// GenerateKeyPair creates a key server master secret and its public key G2*msk.
func GenerateKeyPair(rand io.Reader) (*pairing.Scalar, *pairing.G2, error) {
	msk, err := pairing.RandomScalar(rand)
	if err != nil {
		return nil, nil, err
	}
	return msk, PublicKey(msk), nil
}

// PublicKey returns G2*msk.
func PublicKey(msk *pairing.Scalar) *pairing.G2 {
	return pairing.G2Generator().Mul(msk)
}

// Extract derives the user secret key H(identity)*msk.
func Extract(msk *pairing.Scalar, identity []byte) *pairing.G1 {
	return kdf.HashToGroup(identity).Mul(msk)
}

// VerifyUserSecretKey checks e(usk, G2) == e(H(identity), pk).
func VerifyUserSecretKey(usk *pairing.G1, identity []byte, pk *pairing.G2) bool {
	if usk == nil || pk == nil {
		return false
	}
	lhs := pairing.Pair(usk, pairing.G2Generator())
	rhs := pairing.Pair(kdf.HashToGroup(identity), pk)
	return lhs.Equal(rhs)
}
