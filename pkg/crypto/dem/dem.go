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

// Package dem provides the data encapsulation mechanisms used to encrypt the
// payload of a sealed object under a derived 256-bit key.
//
// Two variants exist and the set is closed:
//
//   - AES256GCM: AES-256-GCM with a fixed 16-byte IV. The tag is appended to
//     the blob and no separate MAC is produced.
//   - HMAC256CTR: a counter-mode keystream built from HMAC-SHA3-256 with a
//     separate HMAC-SHA3-256 MAC over the associated data and ciphertext.
//
// Both variants rely on every key being used for exactly one encryption.
// Keys come from a fresh random base key per object; KeyGuard adds a
// process-local check on top of that.
package dem

import (
	"fmt"
)

// KeySize is the key length for every variant.
const KeySize = 32

// Variant identifies a data encapsulation scheme. Its numeric value is the
// wire tag.
type Variant byte

const (
	// AES256GCM is AES-256-GCM with a fixed IV.
	AES256GCM Variant = 0

	// HMAC256CTR is HMAC-SHA3-256 in counter mode with an HMAC tag.
	HMAC256CTR Variant = 1
)

// String returns the variant name.
func (v Variant) String() string {
	switch v {
	case AES256GCM:
		return "aes-256-gcm"
	case HMAC256CTR:
		return "hmac-256-ctr"
	default:
		return fmt.Sprintf("variant(%d)", byte(v))
	}
}

// Valid reports whether v is a known variant.
func (v Variant) Valid() bool {
	_, ok := schemes[v]
	return ok
}

// ParseVariant maps a variant name back to its value.
func ParseVariant(name string) (Variant, error) {
	for v := range schemes {
		if v.String() == name {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedVariant, name)
}

type scheme struct {
	encrypt func(key, plaintext, aad []byte) (blob, mac []byte, err error)
	decrypt func(key, blob, mac, aad []byte) ([]byte, error)
}

var schemes = map[Variant]scheme{
	AES256GCM:  {encrypt: aesGCMEncrypt, decrypt: aesGCMDecrypt},
	HMAC256CTR: {encrypt: hmacCTREncrypt, decrypt: hmacCTRDecrypt},
}

func lookup(v Variant, key []byte) (scheme, error) {
	s, ok := schemes[v]
	if !ok {
		return scheme{}, fmt.Errorf("%w: %d", ErrUnsupportedVariant, byte(v))
	}
	if len(key) != KeySize {
		return scheme{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKeySize, KeySize, len(key))
	}
	return s, nil
}

// Encrypt seals plaintext under key with the given variant. mac is nil for
// AES256GCM.
func Encrypt(v Variant, key, plaintext, aad []byte) (blob, mac []byte, err error) {
	s, err := lookup(v, key)
	if err != nil {
		return nil, nil, err
	}
	return s.encrypt(key, plaintext, aad)
}

// Decrypt opens blob. Any authentication failure yields
// ErrAuthenticationFailure and a nil plaintext.
func Decrypt(v Variant, key, blob, mac, aad []byte) ([]byte, error) {
	s, err := lookup(v, key)
	if err != nil {
		return nil, err
	}
	return s.decrypt(key, blob, mac, aad)
}
