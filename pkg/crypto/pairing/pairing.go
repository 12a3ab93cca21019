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

// Package pairing exposes the narrow slice of BLS12-381 that the threshold
// IBE scheme needs: scalar field arithmetic, G1/G2 group operations with
// fixed-size compressed encodings, hash-to-curve, and the pairing into GT.
//
// The curve arithmetic is delegated to github.com/cloudflare/circl; this
// package only wraps it so the rest of the module never touches circl types
// directly and every encoding is validated on the way in.
package pairing

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	bls "github.com/cloudflare/circl/ecc/bls12381"
)

const (
	// ScalarSize is the length of a canonical big-endian scalar encoding.
	ScalarSize = bls.ScalarSize

	// G1Size is the length of a compressed G1 element.
	G1Size = bls.G1SizeCompressed

	// G2Size is the length of a compressed G2 element.
	G2Size = bls.G2SizeCompressed

	// GTSize is the length of a serialized GT element.
	GTSize = bls.GtSize
)

var (
	// ErrInvalidEncoding indicates bytes that do not decode to a valid element.
	ErrInvalidEncoding = errors.New("pairing: invalid encoding")

	// ErrZeroScalar is returned when dividing by the zero scalar.
	ErrZeroScalar = errors.New("pairing: division by zero scalar")
)

// Scalar is an element of the BLS12-381 scalar field Fr.
type Scalar struct {
	s bls.Scalar
}

// RandomScalar draws a uniformly random non-zero scalar.
func RandomScalar(r io.Reader) (*Scalar, error) {
	if r == nil {
		r = rand.Reader
	}
	out := new(Scalar)
	for {
		if err := out.s.Random(r); err != nil {
			return nil, fmt.Errorf("failed to generate scalar: %w", err)
		}
		if out.s.IsZero() == 0 {
			return out, nil
		}
	}
}

// ScalarFromUint64 returns the scalar with the given small value.
func ScalarFromUint64(v uint64) *Scalar {
	out := new(Scalar)
	out.s.SetUint64(v)
	return out
}

// ScalarFromBytes decodes a canonical 32-byte big-endian scalar. Values not
// below the group order are rejected.
func ScalarFromBytes(b []byte) (*Scalar, error) {
	if len(b) != ScalarSize {
		return nil, fmt.Errorf("%w: scalar must be %d bytes, got %d", ErrInvalidEncoding, ScalarSize, len(b))
	}
	out := new(Scalar)
	if err := out.s.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEncoding, err)
	}
	return out, nil
}

// Bytes returns the canonical 32-byte big-endian encoding.
func (s *Scalar) Bytes() []byte {
	b, err := s.s.MarshalBinary()
	if err != nil {
		// circl only fails on internal invariants
		panic(fmt.Sprintf("pairing: scalar marshal: %v", err))
	}
	return b
}

// Add returns s + t.
func (s *Scalar) Add(t *Scalar) *Scalar {
	out := new(Scalar)
	out.s.Add(&s.s, &t.s)
	return out
}

// Sub returns s - t.
func (s *Scalar) Sub(t *Scalar) *Scalar {
	out := new(Scalar)
	out.s.Sub(&s.s, &t.s)
	return out
}

// Mul returns s * t.
func (s *Scalar) Mul(t *Scalar) *Scalar {
	out := new(Scalar)
	out.s.Mul(&s.s, &t.s)
	return out
}

// Div returns s / t.
func (s *Scalar) Div(t *Scalar) (*Scalar, error) {
	if t.s.IsZero() == 1 {
		return nil, ErrZeroScalar
	}
	inv := new(bls.Scalar)
	inv.Inv(&t.s)
	out := new(Scalar)
	out.s.Mul(&s.s, inv)
	return out, nil
}

// Equal reports whether s == t in constant time.
func (s *Scalar) Equal(t *Scalar) bool {
	return s.s.IsEqual(&t.s) == 1
}

// G1 is an element of the first source group. User secret keys and hashed
// identities live here.
type G1 struct {
	p bls.G1
}

// G1Generator returns the standard generator of G1.
func G1Generator() *G1 {
	return &G1{p: *bls.G1Generator()}
}

// HashToG1 hashes msg onto G1 with the given domain separation tag.
func HashToG1(msg, dst []byte) *G1 {
	out := new(G1)
	out.p.Hash(msg, dst)
	return out
}

// G1FromBytes decodes a compressed G1 element, rejecting points outside the
// prime-order subgroup.
func G1FromBytes(b []byte) (*G1, error) {
	if len(b) != G1Size {
		return nil, fmt.Errorf("%w: G1 element must be %d bytes, got %d", ErrInvalidEncoding, G1Size, len(b))
	}
	out := new(G1)
	if err := out.p.SetBytes(b); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEncoding, err)
	}
	return out, nil
}

// Bytes returns the 48-byte compressed encoding.
func (g *G1) Bytes() []byte {
	return g.p.BytesCompressed()
}

// Mul returns g * s.
func (g *G1) Mul(s *Scalar) *G1 {
	out := new(G1)
	out.p.ScalarMult(&s.s, &g.p)
	return out
}

// Add returns g + h.
func (g *G1) Add(h *G1) *G1 {
	out := new(G1)
	out.p.Add(&g.p, &h.p)
	return out
}

// Sub returns g - h.
func (g *G1) Sub(h *G1) *G1 {
	neg := h.p
	neg.Neg()
	out := new(G1)
	out.p.Add(&g.p, &neg)
	return out
}

// Equal reports whether g == h.
func (g *G1) Equal(h *G1) bool {
	return g.p.IsEqual(&h.p)
}

// G2 is an element of the second source group. Server public keys and the
// encapsulation nonce live here.
type G2 struct {
	p bls.G2
}

// G2Generator returns the standard generator of G2.
func G2Generator() *G2 {
	return &G2{p: *bls.G2Generator()}
}

// HashToG2 hashes msg onto G2 with the given domain separation tag.
func HashToG2(msg, dst []byte) *G2 {
	out := new(G2)
	out.p.Hash(msg, dst)
	return out
}

// G2FromBytes decodes a compressed G2 element, rejecting points outside the
// prime-order subgroup.
func G2FromBytes(b []byte) (*G2, error) {
	if len(b) != G2Size {
		return nil, fmt.Errorf("%w: G2 element must be %d bytes, got %d", ErrInvalidEncoding, G2Size, len(b))
	}
	out := new(G2)
	if err := out.p.SetBytes(b); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEncoding, err)
	}
	return out, nil
}

// Bytes returns the 96-byte compressed encoding.
func (g *G2) Bytes() []byte {
	return g.p.BytesCompressed()
}

// Mul returns g * s.
func (g *G2) Mul(s *Scalar) *G2 {
	out := new(G2)
	out.p.ScalarMult(&s.s, &g.p)
	return out
}

// Add returns g + h.
func (g *G2) Add(h *G2) *G2 {
	out := new(G2)
	out.p.Add(&g.p, &h.p)
	return out
}

// Equal reports whether g == h.
func (g *G2) Equal(h *G2) bool {
	return g.p.IsEqual(&h.p)
}

// GT is an element of the pairing target group.
type GT struct {
	e bls.Gt
}

// Pair computes e(a, b).
func Pair(a *G1, b *G2) *GT {
	return &GT{e: *bls.Pair(&a.p, &b.p)}
}

// Bytes returns the 576-byte encoding.
func (t *GT) Bytes() []byte {
	b, err := t.e.MarshalBinary()
	if err != nil {
		panic(fmt.Sprintf("pairing: GT marshal: %v", err))
	}
	return b
}

// Equal reports whether t == u.
func (t *GT) Equal(u *GT) bool {
	return t.e.IsEqual(&u.e)
}
