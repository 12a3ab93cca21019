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
	"crypto/hmac"
	"encoding/binary"

	"golang.org/x/crypto/sha3"
)

const (
	encTag = "HMAC-CTR-ENC"
	macTag = "HMAC-CTR-MAC"

	// MACSize is the length of the HMAC256CTR tag.
	MACSize = 32

	blockSize = 32
)

func hmacSHA3(key []byte, parts ...[]byte) []byte {
	h := hmac.New(sha3.New256, key)
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// keystreamXOR applies block i = HMAC(key, encTag || u64le(i)) to data.
func keystreamXOR(key, data []byte) []byte {
	out := make([]byte, len(data))
	var counter [8]byte
	for i := 0; i*blockSize < len(data); i++ {
		binary.LittleEndian.PutUint64(counter[:], uint64(i))
		block := hmacSHA3(key, []byte(encTag), counter[:])

		start := i * blockSize
		end := min(start+blockSize, len(data))
		for j := start; j < end; j++ {
			out[j] = data[j] ^ block[j-start]
		}
	}
	return out
}

func computeMAC(key, aad, ciphertext []byte) []byte {
	var aadLen [8]byte
	binary.BigEndian.PutUint64(aadLen[:], uint64(len(aad)))
	return hmacSHA3(key, []byte(macTag), aadLen[:], aad, ciphertext)
}

func hmacCTREncrypt(key, plaintext, aad []byte) ([]byte, []byte, error) {
	blob := keystreamXOR(key, plaintext)
	return blob, computeMAC(key, aad, blob), nil
}

func hmacCTRDecrypt(key, blob, mac, aad []byte) ([]byte, error) {
	if !hmac.Equal(computeMAC(key, aad, blob), mac) {
		return nil, ErrAuthenticationFailure
	}
	return keystreamXOR(key, blob), nil
}
