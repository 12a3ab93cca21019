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
	"encoding/binary"
	"fmt"
	"math"

	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/dem"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/ibe"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/pairing"
)

// IBE scheme tags.
const ibeBonehFranklinBLS12381 = 0

// MarshalBinary encodes the object in its canonical BCS layout:
//
//	version u8 | package [32] | id vec<u8> | services vec<([32], u8)> |
//	threshold u8 | ibe enum | ciphertext enum
//
// Vector lengths and enum tags are ULEB128.
func (o *EncryptedObject) MarshalBinary() ([]byte, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}

	var w bcsWriter
	w.u8(o.Version)
	w.fixed(o.PackageID[:])
	w.bytes(o.ID)
	w.uleb(uint64(len(o.Services)))
	for _, s := range o.Services {
		w.fixed(s.ObjectID[:])
		w.u8(s.Index)
	}
	w.u8(o.Threshold)

	w.uleb(ibeBonehFranklinBLS12381)
	w.fixed(o.IBE.Nonce.Bytes())
	w.uleb(uint64(len(o.IBE.EncryptedShares)))
	for _, s := range o.IBE.EncryptedShares {
		w.fixed(s)
	}
	w.fixed(o.IBE.EncryptedRandomness)

	switch c := o.Ciphertext.(type) {
	case *AESGCMCiphertext:
		w.uleb(uint64(dem.AES256GCM))
		w.bytes(c.Blob)
		w.option(c.AAD)
	case *HMACCTRCiphertext:
		w.uleb(uint64(dem.HMAC256CTR))
		w.bytes(c.Blob)
		w.option(c.AAD)
		w.fixed(c.MAC)
	}
	return w.buf, nil
}

// UnmarshalBinary decodes data into o.
func (o *EncryptedObject) UnmarshalBinary(data []byte) error {
	parsed, err := ParseEncryptedObject(data)
	if err != nil {
		return err
	}
	*o = *parsed
	return nil
}

// ParseEncryptedObject decodes and validates an encoded object. Trailing
// bytes are rejected.
func ParseEncryptedObject(data []byte) (*EncryptedObject, error) {
	r := &bcsReader{buf: data}
	o := &EncryptedObject{}

	o.Version = r.u8()
	if r.err == nil && o.Version != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrSerialization, o.Version)
	}
	copy(o.PackageID[:], r.fixed(ObjectIDSize))
	o.ID = r.bytes()

	n := r.length(ObjectIDSize + 1)
	if n > 0 {
		o.Services = make([]Service, n)
		for i := range o.Services {
			copy(o.Services[i].ObjectID[:], r.fixed(ObjectIDSize))
			o.Services[i].Index = r.u8()
		}
	}
	o.Threshold = r.u8()

	if tag := r.uleb(); r.err == nil && tag != ibeBonehFranklinBLS12381 {
		return nil, fmt.Errorf("%w: IBE tag %d", ErrUnsupportedVariant, tag)
	}
	enc := &ibe.Encryptions{}
	nonceBytes := r.fixed(pairing.G2Size)
	m := r.length(dem.KeySize)
	if m > 0 {
		enc.EncryptedShares = make([][]byte, m)
		for i := range enc.EncryptedShares {
			enc.EncryptedShares[i] = r.fixed(dem.KeySize)
		}
	}
	enc.EncryptedRandomness = r.fixed(pairing.ScalarSize)
	o.IBE = enc

	tag := r.uleb()
	if r.err == nil {
		switch dem.Variant(tag) {
		case dem.AES256GCM:
			c := &AESGCMCiphertext{}
			c.Blob = r.bytes()
			c.AAD = r.option()
			o.Ciphertext = c
		case dem.HMAC256CTR:
			c := &HMACCTRCiphertext{}
			c.Blob = r.bytes()
			c.AAD = r.option()
			c.MAC = r.fixed(dem.MACSize)
			o.Ciphertext = c
		default:
			return nil, fmt.Errorf("%w: ciphertext tag %d", ErrUnsupportedVariant, tag)
		}
	}

	if r.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, r.err)
	}
	if len(r.buf) != r.off {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrSerialization, len(r.buf)-r.off)
	}

	nonce, err := pairing.G2FromBytes(nonceBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: nonce: %w", ErrSerialization, err)
	}
	enc.Nonce = nonce

	if err := o.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	return o, nil
}

type bcsWriter struct {
	buf []byte
}

func (w *bcsWriter) u8(b byte)      { w.buf = append(w.buf, b) }
func (w *bcsWriter) uleb(v uint64)  { w.buf = binary.AppendUvarint(w.buf, v) }
func (w *bcsWriter) fixed(b []byte) { w.buf = append(w.buf, b...) }

func (w *bcsWriter) bytes(b []byte) {
	w.uleb(uint64(len(b)))
	w.fixed(b)
}

func (w *bcsWriter) option(b []byte) {
	if b == nil {
		w.u8(0)
		return
	}
	w.u8(1)
	w.bytes(b)
}

// bcsReader records the first error and turns every later read into a no-op.
type bcsReader struct {
	buf []byte
	off int
	err error
}

func (r *bcsReader) fail(format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf(format, args...)
	}
}

func (r *bcsReader) fixed(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.buf)-r.off < n {
		r.fail("need %d bytes at offset %d, have %d", n, r.off, len(r.buf)-r.off)
		return nil
	}
	out := make([]byte, n)
	copy(out, r.buf[r.off:])
	r.off += n
	return out
}

func (r *bcsReader) u8() byte {
	b := r.fixed(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *bcsReader) uleb() uint64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Uvarint(r.buf[r.off:])
	if n <= 0 || v > math.MaxUint32 {
		r.fail("invalid ULEB128 at offset %d", r.off)
		return 0
	}
	// Only the shortest encoding is accepted.
	if n != len(binary.AppendUvarint(nil, v)) {
		r.fail("non-canonical ULEB128 at offset %d", r.off)
		return 0
	}
	r.off += n
	return v
}

// length reads a vector length and checks that elemSize*length bytes remain.
func (r *bcsReader) length(elemSize int) int {
	v := r.uleb()
	if r.err != nil {
		return 0
	}
	if v > uint64((len(r.buf)-r.off)/elemSize) {
		r.fail("vector of %d elements exceeds input", v)
		return 0
	}
	return int(v)
}

func (r *bcsReader) bytes() []byte {
	n := r.length(1)
	if r.err != nil {
		return nil
	}
	return r.fixed(n)
}

func (r *bcsReader) option() []byte {
	switch tag := r.u8(); {
	case r.err != nil:
		return nil
	case tag == 0:
		return nil
	case tag == 1:
		return r.bytes()
	default:
		r.fail("invalid option tag %d", tag)
		return nil
	}
}
