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

package kdf

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/pairing"
)

func fixture(t *testing.T) (*pairing.GT, *pairing.G2) {
	t.Helper()
	r := pairing.ScalarFromUint64(12345)
	nonce := pairing.G2Generator().Mul(r)
	element := pairing.Pair(HashToGroup([]byte("id")).Mul(r), pairing.G2Generator())
	return element, nonce
}

func TestHashToGroupDeterministic(t *testing.T) {
	a := HashToGroup([]byte("alice"))
	b := HashToGroup([]byte("alice"))
	c := HashToGroup([]byte("alicf"))

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(pairing.HashToG1([]byte("alice"), []byte("OTHER-DST"))))
}

func TestKDF(t *testing.T) {
	element, nonce := fixture(t)
	serverID := [ServerIDSize]byte{1, 2, 3}

	base, err := KDF(element, nonce, []byte("id"), serverID, 1)
	require.NoError(t, err)
	require.Len(t, base, Size)

	again, err := KDF(element, nonce, []byte("id"), serverID, 1)
	require.NoError(t, err)
	assert.Equal(t, base, again, "KDF must be deterministic")

	otherID := serverID
	otherID[31] ^= 0x01
	otherNonce := nonce.Add(pairing.G2Generator())
	otherElement := pairing.Pair(pairing.G1Generator(), pairing.G2Generator())

	variants := map[string]func() ([]byte, error){
		"identity":  func() ([]byte, error) { return KDF(element, nonce, []byte("iD"), serverID, 1) },
		"server id": func() ([]byte, error) { return KDF(element, nonce, []byte("id"), otherID, 1) },
		"index":     func() ([]byte, error) { return KDF(element, nonce, []byte("id"), serverID, 2) },
		"nonce":     func() ([]byte, error) { return KDF(element, otherNonce, []byte("id"), serverID, 1) },
		"element":   func() ([]byte, error) { return KDF(otherElement, nonce, []byte("id"), serverID, 1) },
	}
	for name, fn := range variants {
		t.Run(name, func(t *testing.T) {
			out, err := fn()
			require.NoError(t, err)
			assert.NotEqual(t, base, out)
		})
	}
}

func TestKDFIndexRange(t *testing.T) {
	element, nonce := fixture(t)

	for _, idx := range []int{0, 255} {
		_, err := KDF(element, nonce, nil, [ServerIDSize]byte{}, idx)
		assert.NoError(t, err, "index %d", idx)
	}
	for _, idx := range []int{-1, 256} {
		_, err := KDF(element, nonce, nil, [ServerIDSize]byte{}, idx)
		assert.ErrorIs(t, err, ErrInvalidConfiguration, "index %d", idx)
	}
}

func TestDeriveKey(t *testing.T) {
	baseKey := bytes.Repeat([]byte{0x11}, 32)
	shares := [][]byte{bytes.Repeat([]byte{0x22}, 32), bytes.Repeat([]byte{0x33}, 32)}
	ids := [][ServerIDSize]byte{{0xaa}, {0xbb}}

	dataKey, err := DeriveKey(PurposeDataKey, baseKey, shares, 2, ids)
	require.NoError(t, err)
	require.Len(t, dataKey, Size)

	again, err := DeriveKey(PurposeDataKey, baseKey, shares, 2, ids)
	require.NoError(t, err)
	assert.Equal(t, dataKey, again)

	randKey, err := DeriveKey(PurposeEncryptedRandomness, baseKey, shares, 2, ids)
	require.NoError(t, err)
	assert.NotEqual(t, dataKey, randKey, "purposes must be separated")

	t.Run("base key byte", func(t *testing.T) {
		mutated := bytes.Clone(baseKey)
		mutated[5] ^= 0x80
		out, err := DeriveKey(PurposeDataKey, mutated, shares, 2, ids)
		require.NoError(t, err)
		assert.NotEqual(t, dataKey, out)
	})

	t.Run("share byte", func(t *testing.T) {
		mutated := [][]byte{bytes.Clone(shares[0]), shares[1]}
		mutated[0][31] ^= 0x01
		out, err := DeriveKey(PurposeDataKey, baseKey, mutated, 2, ids)
		require.NoError(t, err)
		assert.NotEqual(t, dataKey, out)
	})

	t.Run("threshold", func(t *testing.T) {
		out, err := DeriveKey(PurposeDataKey, baseKey, shares, 1, ids)
		require.NoError(t, err)
		assert.NotEqual(t, dataKey, out)
	})

	t.Run("server order", func(t *testing.T) {
		swapped := [][ServerIDSize]byte{ids[1], ids[0]}
		out, err := DeriveKey(PurposeDataKey, baseKey, shares, 2, swapped)
		require.NoError(t, err)
		assert.NotEqual(t, dataKey, out)
	})
}

func TestDeriveKeyValidation(t *testing.T) {
	tests := []struct {
		name      string
		purpose   Purpose
		threshold int
		shares    [][]byte
		ids       [][ServerIDSize]byte
	}{
		{name: "zero threshold", purpose: PurposeDataKey, threshold: 0},
		{name: "threshold too large", purpose: PurposeDataKey, threshold: 256},
		{name: "unknown purpose", purpose: Purpose(7), threshold: 1},
		{name: "length mismatch", purpose: PurposeDataKey, threshold: 1, shares: [][]byte{{1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DeriveKey(tt.purpose, []byte("k"), tt.shares, tt.threshold, tt.ids)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
		})
	}
}

func TestXOR(t *testing.T) {
	out, err := XOR([]byte{0xf0, 0x0f}, []byte{0xff, 0xff})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0f, 0xf0}, out)

	_, err = XOR([]byte{1}, []byte{1, 2})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}
