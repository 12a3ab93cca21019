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

package seal

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/dem"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/ibe"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/kdf"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/pairing"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/secretsharing"
)

const (
	// Version is the only supported EncryptedObject version.
	Version byte = 0

	// ObjectIDSize is the length of package and key-server identifiers.
	ObjectIDSize = 32

	// MaxServers bounds the number of services in one object.
	MaxServers = secretsharing.MaxShares
)

// ObjectID identifies a package or a key server.
type ObjectID [ObjectIDSize]byte

// ParseObjectID parses a hex identifier with optional 0x prefix. Short
// values are left-padded with zeros, so "0x2" is valid.
func ParseObjectID(s string) (ObjectID, error) {
	var id ObjectID
	h := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if h == "" || len(h) > 2*ObjectIDSize {
		return id, fmt.Errorf("%w: object id %q must have 1 to %d hex digits", ErrInvalidConfiguration, s, 2*ObjectIDSize)
	}
	if len(h)%2 == 1 {
		h = "0" + h
	}
	raw, err := hex.DecodeString(h)
	if err != nil {
		return id, fmt.Errorf("%w: object id %q: %w", ErrInvalidConfiguration, s, err)
	}
	copy(id[ObjectIDSize-len(raw):], raw)
	return id, nil
}

// String returns the 0x-prefixed hex encoding.
func (id ObjectID) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

// MarshalText implements encoding.TextMarshaler.
func (id ObjectID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ObjectID) UnmarshalText(text []byte) error {
	parsed, err := ParseObjectID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// KeyServer is one IBE key server. The position of a server in the list
// given to Encrypt is bound into every derived key.
type KeyServer struct {
	ObjectID  ObjectID
	PublicKey *pairing.G2
	Name      string
	URL       string
}

// Service records which key server holds which share index.
type Service struct {
	ObjectID ObjectID
	Index    byte
}

// FullIdentity returns packageID || id, the IBE identity a decryptor needs
// keys for.
func FullIdentity(packageID ObjectID, id []byte) []byte {
	out := make([]byte, 0, ObjectIDSize+len(id))
	out = append(out, packageID[:]...)
	return append(out, id...)
}

// PolicyID builds the identifier passed to an access-policy check:
// creator || nonce.
func PolicyID(creator ObjectID, nonce []byte) []byte {
	return FullIdentity(creator, nonce)
}

// Ciphertext is the DEM output. It is implemented only by
// *AESGCMCiphertext and *HMACCTRCiphertext.
type Ciphertext interface {
	Variant() dem.Variant
	isCiphertext()
}

// AESGCMCiphertext carries the AES-256-GCM blob with the tag appended.
// A nil AAD is encoded as absent.
type AESGCMCiphertext struct {
	Blob []byte
	AAD  []byte
}

// Variant returns dem.AES256GCM.
func (*AESGCMCiphertext) Variant() dem.Variant { return dem.AES256GCM }
func (*AESGCMCiphertext) isCiphertext()        {}

// HMACCTRCiphertext carries the HMAC-CTR blob and its separate MAC.
type HMACCTRCiphertext struct {
	Blob []byte
	AAD  []byte
	MAC  []byte
}

// Variant returns dem.HMAC256CTR.
func (*HMACCTRCiphertext) Variant() dem.Variant { return dem.HMAC256CTR }
func (*HMACCTRCiphertext) isCiphertext()        {}

// EncryptedObject is the only artifact of Encrypt that is stored or sent.
type EncryptedObject struct {
	Version    byte
	PackageID  ObjectID
	ID         []byte
	Services   []Service
	Threshold  byte
	IBE        *ibe.Encryptions
	Ciphertext Ciphertext
}

// FullIdentity returns the IBE identity of the object.
func (o *EncryptedObject) FullIdentity() []byte {
	return FullIdentity(o.PackageID, o.ID)
}

// ServerIDs returns the service object ids in order.
func (o *EncryptedObject) ServerIDs() [][kdf.ServerIDSize]byte {
	ids := make([][kdf.ServerIDSize]byte, len(o.Services))
	for i, s := range o.Services {
		ids[i] = s.ObjectID
	}
	return ids
}

// Validate checks the structural invariants of the object.
func (o *EncryptedObject) Validate() error {
	if o.Version != Version {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidConfiguration, o.Version)
	}
	n := len(o.Services)
	if n == 0 || n > MaxServers {
		return fmt.Errorf("%w: %d services, need 1 to %d", ErrInvalidConfiguration, n, MaxServers)
	}
	if o.Threshold == 0 || int(o.Threshold) > n {
		return fmt.Errorf("%w: threshold %d with %d services", ErrInvalidConfiguration, o.Threshold, n)
	}

	seen := make(map[byte]struct{}, n)
	for _, s := range o.Services {
		if s.Index == 0 {
			return fmt.Errorf("%w: share index 0", ErrInvalidConfiguration)
		}
		if _, dup := seen[s.Index]; dup {
			return fmt.Errorf("%w: duplicate share index %d", ErrInvalidConfiguration, s.Index)
		}
		seen[s.Index] = struct{}{}
	}

	if o.IBE == nil || o.IBE.Nonce == nil {
		return fmt.Errorf("%w: missing IBE encryptions", ErrInvalidConfiguration)
	}
	if len(o.IBE.EncryptedShares) != n {
		return fmt.Errorf("%w: %d encrypted shares for %d services", ErrInvalidConfiguration, len(o.IBE.EncryptedShares), n)
	}
	for i, s := range o.IBE.EncryptedShares {
		if len(s) != dem.KeySize {
			return fmt.Errorf("%w: encrypted share %d is %d bytes", ErrInvalidConfiguration, i, len(s))
		}
	}
	if len(o.IBE.EncryptedRandomness) != pairing.ScalarSize {
		return fmt.Errorf("%w: encrypted randomness is %d bytes", ErrInvalidConfiguration, len(o.IBE.EncryptedRandomness))
	}

	switch c := o.Ciphertext.(type) {
	case *AESGCMCiphertext:
		if c == nil {
			return fmt.Errorf("%w: nil ciphertext", ErrInvalidConfiguration)
		}
	case *HMACCTRCiphertext:
		if c == nil || len(c.MAC) != dem.MACSize {
			return fmt.Errorf("%w: HMAC-CTR ciphertext needs a %d byte MAC", ErrInvalidConfiguration, dem.MACSize)
		}
	case nil:
		return fmt.Errorf("%w: missing ciphertext", ErrInvalidConfiguration)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedVariant, o.Ciphertext)
	}
	return nil
}
