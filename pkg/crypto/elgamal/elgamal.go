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

// Package elgamal implements ElGamal encryption of G1 elements, used to carry
// user secret keys from a key server back to the requesting client.
//
// The client holds an ephemeral secret sk and publishes pk = G1*sk together
// with a verification key vk = G2*sk, which lets the server confirm that pk
// is well formed before encrypting to it.
package elgamal

import (
	"errors"
	"fmt"
	"io"

	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/pairing"
)

// ErrInvalidKey indicates a public/verification key pair that does not share
// a discrete log.
var ErrInvalidKey = errors.New("elgamal: invalid key pair")

// SecretKey is an ephemeral ElGamal decryption key.
type SecretKey struct {
	sk *pairing.Scalar
}

// PublicKey is the encryption key G1*sk.
type PublicKey struct {
	P *pairing.G1
}

// VerificationKey is G2*sk.
type VerificationKey struct {
	P *pairing.G2
}

// Ciphertext is (G1*r, m + pk*r).
type Ciphertext struct {
	C1 *pairing.G1
	C2 *pairing.G1
}

// GenerateKey creates a fresh key triple.
func GenerateKey(rand io.Reader) (*SecretKey, *PublicKey, *VerificationKey, error) {
	sk, err := pairing.RandomScalar(rand)
	if err != nil {
		return nil, nil, nil, err
	}
	return &SecretKey{sk: sk},
		&PublicKey{P: pairing.G1Generator().Mul(sk)},
		&VerificationKey{P: pairing.G2Generator().Mul(sk)},
		nil
}

// SecretKeyFromBytes decodes a 32-byte scalar.
func SecretKeyFromBytes(b []byte) (*SecretKey, error) {
	sk, err := pairing.ScalarFromBytes(b)
	if err != nil {
		return nil, err
	}
	return &SecretKey{sk: sk}, nil
}

// Bytes returns the scalar encoding.
func (k *SecretKey) Bytes() []byte {
	return k.sk.Bytes()
}

// PublicKey returns G1*sk.
func (k *SecretKey) PublicKey() *PublicKey {
	return &PublicKey{P: pairing.G1Generator().Mul(k.sk)}
}

// VerificationKey returns G2*sk.
func (k *SecretKey) VerificationKey() *VerificationKey {
	return &VerificationKey{P: pairing.G2Generator().Mul(k.sk)}
}

// VerifyKeyPair checks e(pk, G2) == e(G1, vk).
func VerifyKeyPair(pk *PublicKey, vk *VerificationKey) error {
	if pk == nil || pk.P == nil || vk == nil || vk.P == nil {
		return fmt.Errorf("%w: missing key", ErrInvalidKey)
	}
	lhs := pairing.Pair(pk.P, pairing.G2Generator())
	rhs := pairing.Pair(pairing.G1Generator(), vk.P)
	if !lhs.Equal(rhs) {
		return ErrInvalidKey
	}
	return nil
}

// Encrypt encrypts msg to pk.
func Encrypt(rand io.Reader, pk *PublicKey, msg *pairing.G1) (*Ciphertext, error) {
	if pk == nil || pk.P == nil || msg == nil {
		return nil, fmt.Errorf("%w: missing key or message", ErrInvalidKey)
	}
	r, err := pairing.RandomScalar(rand)
	if err != nil {
		return nil, err
	}
	return &Ciphertext{
		C1: pairing.G1Generator().Mul(r),
		C2: msg.Add(pk.P.Mul(r)),
	}, nil
}

// Decrypt returns C2 - C1*sk.
func Decrypt(sk *SecretKey, ct *Ciphertext) (*pairing.G1, error) {
	if ct == nil || ct.C1 == nil || ct.C2 == nil {
		return nil, fmt.Errorf("%w: incomplete ciphertext", pairing.ErrInvalidEncoding)
	}
	return ct.C2.Sub(ct.C1.Mul(sk.sk)), nil
}
