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

// Package seal encrypts data so that any threshold of a fixed set of key
// servers can jointly release the decryption key for it, while no single
// server learns the key or the plaintext.
//
// Encrypt splits a fresh base key into one share per key server, encrypts
// each share to its server with identity-based encryption, and encrypts the
// payload under a key derived from the base key. Decrypt consumes user
// secret keys that were previously fetched into a KeyCache; it performs no
// I/O.
package seal

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/dem"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/ibe"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/kdf"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/pairing"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/secretsharing"
)

// EncryptParams configures one encryption.
type EncryptParams struct {
	// PackageID and ID form the identity decryptors must obtain keys for.
	PackageID ObjectID
	ID        []byte

	// KeyServers receive one share each, in order.
	KeyServers []KeyServer

	// Threshold is the number of key servers needed to decrypt.
	Threshold int

	// Variant selects the data encapsulation scheme.
	Variant dem.Variant

	// AAD is authenticated but not encrypted. nil means absent.
	AAD []byte

	// Rand defaults to crypto/rand.
	Rand io.Reader
}

// Validate checks the parameters without drawing randomness.
func (p *EncryptParams) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil parameters", ErrInvalidConfiguration)
	}
	n := len(p.KeyServers)
	if n == 0 || n > MaxServers {
		return fmt.Errorf("%w: %d key servers, need 1 to %d", ErrInvalidConfiguration, n, MaxServers)
	}
	if p.Threshold < 1 || p.Threshold > n {
		return fmt.Errorf("%w: threshold %d with %d key servers", ErrInvalidConfiguration, p.Threshold, n)
	}
	for i, ks := range p.KeyServers {
		if ks.PublicKey == nil {
			return fmt.Errorf("%w: key server %d (%s) has no public key", ErrInvalidConfiguration, i, ks.ObjectID)
		}
	}
	if !p.Variant.Valid() {
		return fmt.Errorf("%w: %w: %s", ErrInvalidConfiguration, ErrUnsupportedVariant, p.Variant)
	}
	return nil
}

// Encrypt seals plaintext for params.KeyServers. It returns the data key so
// callers can keep an out-of-band backup; the key must not be stored next
// to the object.
func Encrypt(plaintext []byte, params *EncryptParams) (dataKey []byte, obj *EncryptedObject, err error) {
	return encrypt(plaintext, params, nil)
}

func encrypt(plaintext []byte, params *EncryptParams, guard *dem.KeyGuard) ([]byte, *EncryptedObject, error) {
	if err := params.Validate(); err != nil {
		return nil, nil, err
	}
	rng := params.Rand
	if rng == nil {
		rng = rand.Reader
	}

	baseKey := make([]byte, dem.KeySize)
	defer clear(baseKey)
	if _, err := io.ReadFull(rng, baseKey); err != nil {
		return nil, nil, fmt.Errorf("failed to generate base key: %w", err)
	}

	n := len(params.KeyServers)
	shares, err := secretsharing.SplitWithRand(rng, baseKey, params.Threshold, n)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	defer func() {
		for _, s := range shares {
			clear(s.Data)
		}
	}()

	services := make([]Service, n)
	serverIDs := make([][kdf.ServerIDSize]byte, n)
	for i, ks := range params.KeyServers {
		services[i] = Service{ObjectID: ks.ObjectID, Index: shares[i].Index}
		serverIDs[i] = ks.ObjectID
	}

	fullID := FullIdentity(params.PackageID, params.ID)
	enc, err := ibe.EncryptBatched(rng, publicKeys(params.KeyServers), fullID, shares, baseKey, params.Threshold, serverIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}

	dataKey, err := kdf.DeriveKey(kdf.PurposeDataKey, baseKey, enc.EncryptedShares, params.Threshold, serverIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}

	var blob, mac []byte
	if guard != nil {
		blob, mac, err = guard.EncryptOnce(params.Variant, dataKey, plaintext, params.AAD)
	} else {
		blob, mac, err = dem.Encrypt(params.Variant, dataKey, plaintext, params.AAD)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}

	var ct Ciphertext
	switch params.Variant {
	case dem.HMAC256CTR:
		ct = &HMACCTRCiphertext{Blob: blob, AAD: params.AAD, MAC: mac}
	default:
		ct = &AESGCMCiphertext{Blob: blob, AAD: params.AAD}
	}

	return dataKey, &EncryptedObject{
		Version:    Version,
		PackageID:  params.PackageID,
		ID:         append([]byte(nil), params.ID...),
		Services:   services,
		Threshold:  byte(params.Threshold),
		IBE:        enc,
		Ciphertext: ct,
	}, nil
}

// Decrypt opens obj with the user secret keys in cache. It needs keys from
// at least obj.Threshold distinct services and fails before any
// reconstruction otherwise. A wrong or corrupted share set is reported as
// ErrIntegrityCheckFailed and never yields plaintext.
func Decrypt(obj *EncryptedObject, cache *KeyCache) ([]byte, error) {
	if obj == nil {
		return nil, fmt.Errorf("%w: nil object", ErrInvalidConfiguration)
	}
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	fullID := obj.FullIdentity()
	threshold := int(obj.Threshold)

	type available struct {
		pos int
		svc Service
	}
	var avail []available
	for i, svc := range obj.Services {
		if cache.Has(fullID, svc.ObjectID) {
			avail = append(avail, available{pos: i, svc: svc})
		}
	}
	if len(avail) < threshold {
		return nil, &InsufficientSharesError{Have: len(avail), Threshold: threshold}
	}

	shares := make([]secretsharing.Share, 0, threshold)
	defer func() {
		for _, s := range shares {
			clear(s.Data)
		}
	}()
	for _, a := range avail[:threshold] {
		usk, _ := cache.Get(fullID, a.svc.ObjectID)
		data, err := ibe.DecryptShare(obj.IBE.Nonce, usk, obj.IBE.EncryptedShares[a.pos], fullID, a.svc.ObjectID, int(a.svc.Index))
		if err != nil {
			return nil, fmt.Errorf("%w: share %d: %w", ErrInvalidConfiguration, a.svc.Index, err)
		}
		shares = append(shares, secretsharing.Share{Index: a.svc.Index, Data: data})
	}

	baseKey, err := secretsharing.Combine(shares)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	defer clear(baseKey)

	serverIDs := obj.ServerIDs()
	r, err := ibe.DecryptRandomness(obj.IBE, baseKey, threshold, serverIDs)
	if err != nil {
		if errors.Is(err, ibe.ErrInvalidRandomness) {
			return nil, fmt.Errorf("%w: %w", ErrIntegrityCheckFailed, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	if !ibe.VerifyNonce(obj.IBE.Nonce, r) {
		return nil, fmt.Errorf("%w: reconstructed randomness does not match nonce", ErrIntegrityCheckFailed)
	}

	dataKey, err := kdf.DeriveKey(kdf.PurposeDataKey, baseKey, obj.IBE.EncryptedShares, threshold, serverIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	defer clear(dataKey)

	return open(obj.Ciphertext, dataKey)
}

// DecryptWithDataKey opens obj with a data key returned by Encrypt, without
// contacting key servers.
func DecryptWithDataKey(obj *EncryptedObject, dataKey []byte) ([]byte, error) {
	if obj == nil || obj.Ciphertext == nil {
		return nil, fmt.Errorf("%w: missing ciphertext", ErrInvalidConfiguration)
	}
	return open(obj.Ciphertext, dataKey)
}

func open(ct Ciphertext, dataKey []byte) ([]byte, error) {
	var blob, mac, aad []byte
	switch c := ct.(type) {
	case *AESGCMCiphertext:
		blob, aad = c.Blob, c.AAD
	case *HMACCTRCiphertext:
		blob, aad, mac = c.Blob, c.AAD, c.MAC
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedVariant, ct)
	}

	plaintext, err := dem.Decrypt(ct.Variant(), dataKey, blob, mac, aad)
	if err != nil {
		if errors.Is(err, dem.ErrAuthenticationFailure) {
			return nil, fmt.Errorf("%w: %w", ErrAuthenticationFailure, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	return plaintext, nil
}

func publicKeys(servers []KeyServer) []*pairing.G2 {
	pks := make([]*pairing.G2, len(servers))
	for i, ks := range servers {
		pks[i] = ks.PublicKey
	}
	return pks
}
