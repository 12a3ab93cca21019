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

package dem

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var variants = []Variant{AES256GCM, HMAC256CTR}

func randomKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestRoundTrip(t *testing.T) {
	for _, v := range variants {
		for _, size := range []int{0, 1, 31, 32, 33, 1000} {
			for _, aad := range [][]byte{nil, []byte("associated data")} {
				t.Run(v.String(), func(t *testing.T) {
					key := randomKey(t)
					plaintext := bytes.Repeat([]byte{0x5a}, size)

					blob, mac, err := Encrypt(v, key, plaintext, aad)
					require.NoError(t, err)
					if v == HMAC256CTR {
						assert.Len(t, mac, MACSize)
						assert.Len(t, blob, size)
					} else {
						assert.Nil(t, mac)
						assert.Len(t, blob, size+16)
					}

					got, err := Decrypt(v, key, blob, mac, aad)
					require.NoError(t, err)
					assert.Equal(t, len(plaintext), len(got))
					assert.True(t, bytes.Equal(plaintext, got))
				})
			}
		}
	}
}

func TestTamperDetection(t *testing.T) {
	plaintext := []byte("tamper evident payload that spans two blocks!")
	aad := []byte("aad")

	for _, v := range variants {
		t.Run(v.String(), func(t *testing.T) {
			key := randomKey(t)
			blob, mac, err := Encrypt(v, key, plaintext, aad)
			require.NoError(t, err)

			for i := range blob {
				mutated := bytes.Clone(blob)
				mutated[i] ^= 0x01
				got, err := Decrypt(v, key, mutated, mac, aad)
				require.ErrorIs(t, err, ErrAuthenticationFailure, "blob byte %d", i)
				require.Nil(t, got)
			}
			for i := range mac {
				mutated := bytes.Clone(mac)
				mutated[i] ^= 0x80
				_, err := Decrypt(v, key, blob, mutated, aad)
				require.ErrorIs(t, err, ErrAuthenticationFailure, "mac byte %d", i)
			}

			_, err = Decrypt(v, key, blob, mac, []byte("aae"))
			assert.ErrorIs(t, err, ErrAuthenticationFailure)

			_, err = Decrypt(v, randomKey(t), blob, mac, aad)
			assert.ErrorIs(t, err, ErrAuthenticationFailure)
		})
	}
}

func TestHMACCTRKeystream(t *testing.T) {
	key := randomKey(t)

	// keystream must not repeat across blocks
	zeros := make([]byte, 64)
	blob, _, err := Encrypt(HMAC256CTR, key, zeros, nil)
	require.NoError(t, err)
	assert.NotEqual(t, blob[:32], blob[32:])

	// a prefix encrypts to a prefix
	short, _, err := Encrypt(HMAC256CTR, key, zeros[:40], nil)
	require.NoError(t, err)
	assert.Equal(t, blob[:40], short)
}

func TestDeterministicUnderFixedIV(t *testing.T) {
	key := randomKey(t)
	a, _, err := Encrypt(AES256GCM, key, []byte("x"), nil)
	require.NoError(t, err)
	b, _, err := Encrypt(AES256GCM, key, []byte("x"), nil)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestValidation(t *testing.T) {
	_, _, err := Encrypt(Variant(9), randomKey(t), nil, nil)
	assert.ErrorIs(t, err, ErrUnsupportedVariant)

	_, err = Decrypt(Variant(9), randomKey(t), nil, nil, nil)
	assert.ErrorIs(t, err, ErrUnsupportedVariant)

	for _, v := range variants {
		_, _, err := Encrypt(v, make([]byte, 16), nil, nil)
		assert.ErrorIs(t, err, ErrInvalidKeySize)
	}

	assert.True(t, AES256GCM.Valid())
	assert.False(t, Variant(2).Valid())
}

func TestParseVariant(t *testing.T) {
	for _, v := range variants {
		got, err := ParseVariant(v.String())
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
	_, err := ParseVariant("rot13")
	assert.ErrorIs(t, err, ErrUnsupportedVariant)
}
