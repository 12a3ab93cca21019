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

package keyserver

import (
	"fmt"

	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/elgamal"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/pairing"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/seal"
)

const (
	// FetchKeyPath is the key release endpoint.
	FetchKeyPath = "/v1/fetch_key"

	// ServicePath returns the server identity and public key.
	ServicePath = "/v1/service"
)

// Certificate binds a session verification key to a user for a limited
// time. It is forwarded to the policy checker unchanged.
type Certificate struct {
	User         string `json:"user"`
	SessionVK    []byte `json:"session_vk"`
	CreationTime int64  `json:"creation_time"`
	TTLMin       uint16 `json:"ttl_min"`
	Signature    []byte `json:"signature"`
}

// FetchKeyRequest is the body of POST /v1/fetch_key. Byte fields are
// base64 in JSON. IDs are full identities (package id followed by the inner
// id).
type FetchKeyRequest struct {
	PTB                []byte       `json:"ptb"`
	EncKey             []byte       `json:"enc_key"`
	EncVerificationKey []byte       `json:"enc_verification_key"`
	RequestSignature   []byte       `json:"request_signature"`
	Certificate        *Certificate `json:"certificate,omitempty"`
	IDs                [][]byte     `json:"ids"`
}

// DecryptionKey is one ElGamal-encrypted user secret key.
type DecryptionKey struct {
	ID           []byte   `json:"id"`
	EncryptedKey [][]byte `json:"encrypted_key"`
}

// FetchKeyResponse is the body returned by POST /v1/fetch_key.
type FetchKeyResponse struct {
	DecryptionKeys []DecryptionKey `json:"decryption_keys"`
}

// ServiceInfo is the body returned by GET /v1/service.
type ServiceInfo struct {
	ServiceID seal.ObjectID `json:"service_id"`
	PublicKey []byte        `json:"public_key"`
}

// ErrorResponse is the JSON error body used by the key server.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

func encodeCiphertext(ct *elgamal.Ciphertext) [][]byte {
	return [][]byte{ct.C1.Bytes(), ct.C2.Bytes()}
}

func decodeCiphertext(parts [][]byte) (*elgamal.Ciphertext, error) {
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: encrypted key has %d parts", ErrInvalidKey, len(parts))
	}
	c1, err := pairing.G1FromBytes(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	c2, err := pairing.G1FromBytes(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return &elgamal.Ciphertext{C1: c1, C2: c2}, nil
}
