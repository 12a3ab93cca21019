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
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// IVSize is the length of the fixed AES-GCM IV.
const IVSize = 16

// fixedIV is shared by every AES-GCM encryption. Keys must never repeat.
var fixedIV = [IVSize]byte{138, 55, 153, 253, 198, 46, 121, 219, 160, 128, 89, 7, 214, 156, 148, 220}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKeySize, err)
	}
	return cipher.NewGCMWithNonceSize(block, IVSize)
}

func aesGCMEncrypt(key, plaintext, aad []byte) ([]byte, []byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}
	return gcm.Seal(nil, fixedIV[:], plaintext, aad), nil, nil
}

func aesGCMDecrypt(key, blob, _, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, fixedIV[:], blob, aad)
	if err != nil {
		return nil, ErrAuthenticationFailure
	}
	return plaintext, nil
}
