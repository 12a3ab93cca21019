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

package secretsharing

import (
	"crypto/rand"
	"fmt"
	"io"
)

// MaxShares is the largest number of shares a secret can be split into.
// Index 0 is the secret itself, so evaluation points are 1..255.
const MaxShares = 255

// Share represents a single share of a secret.
type Share struct {
	Index byte   // Evaluation point (1-255)
	Data  []byte // One polynomial evaluation per secret byte
}

// Split divides a secret into total shares, any threshold of which
// reconstruct it. Coefficients are drawn from crypto/rand on every call.
func Split(secret []byte, threshold, total int) ([]Share, error) {
	return SplitWithRand(rand.Reader, secret, threshold, total)
}

// SplitWithRand is Split with an explicit entropy source for the
// non-constant polynomial coefficients.
func SplitWithRand(r io.Reader, secret []byte, threshold, total int) ([]Share, error) {
	if err := validate(threshold, total); err != nil {
		return nil, err
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: secret cannot be empty", ErrInvalidConfiguration)
	}
	if r == nil {
		r = rand.Reader
	}

	shares := make([]Share, total)
	for i := range shares {
		shares[i].Index = byte(i + 1)
		shares[i].Data = make([]byte, len(secret))
	}

	// p(x) = a0 + a1*x + ... + a(t-1)*x^(t-1), a0 is the secret byte
	coeffs := make([]byte, threshold)
	defer zero(coeffs)

	for pos := range secret {
		coeffs[0] = secret[pos]
		if threshold > 1 {
			if _, err := io.ReadFull(r, coeffs[1:]); err != nil {
				return nil, fmt.Errorf("failed to generate random coefficients: %w", err)
			}
		}
		for i := range shares {
			shares[i].Data[pos] = evaluatePolynomial(coeffs, shares[i].Index)
		}
	}

	return shares, nil
}

// Combine reconstructs a secret by interpolating the shares at x=0.
//
// Any non-empty set of shares with distinct indices can be combined. Fewer
// shares than the original threshold yields a wrong value without error;
// callers must check the result independently.
func Combine(shares []Share) ([]byte, error) {
	if len(shares) == 0 {
		return nil, fmt.Errorf("%w: no shares provided", ErrInvalidConfiguration)
	}
	if len(shares) > MaxShares {
		return nil, fmt.Errorf("%w: too many shares: %d", ErrInvalidConfiguration, len(shares))
	}

	size := len(shares[0].Data)
	if size == 0 {
		return nil, fmt.Errorf("%w: share 0 has empty data", ErrInvalidConfiguration)
	}

	var seen [256]bool
	for i, share := range shares {
		if share.Index == 0 {
			return nil, fmt.Errorf("%w: share %d has invalid index 0", ErrInvalidConfiguration, i)
		}
		if seen[share.Index] {
			return nil, fmt.Errorf("%w: duplicate share index %d", ErrInvalidConfiguration, share.Index)
		}
		seen[share.Index] = true
		if len(share.Data) != size {
			return nil, fmt.Errorf("%w: share %d has length %d, expected %d",
				ErrInvalidConfiguration, i, len(share.Data), size)
		}
	}

	basis, err := lagrangeBasisAtZero(shares)
	if err != nil {
		return nil, err
	}

	secret := make([]byte, size)
	for pos := range secret {
		var acc byte
		for i := range shares {
			acc = Add(acc, Mul(shares[i].Data[pos], basis[i]))
		}
		secret[pos] = acc
	}

	return secret, nil
}

// validate checks 1 <= threshold <= total <= 255.
func validate(threshold, total int) error {
	if threshold < 1 {
		return fmt.Errorf("%w: threshold must be at least 1, got %d", ErrInvalidConfiguration, threshold)
	}
	if total < threshold {
		return fmt.Errorf("%w: total shares (%d) must be >= threshold (%d)", ErrInvalidConfiguration, total, threshold)
	}
	if total > MaxShares {
		return fmt.Errorf("%w: total shares must be <= %d, got %d", ErrInvalidConfiguration, MaxShares, total)
	}
	return nil
}

// evaluatePolynomial evaluates a polynomial at point x in GF(256).
// Uses Horner's method: p(x) = a0 + x(a1 + x(a2 + ... + x*an))
func evaluatePolynomial(coeffs []byte, x byte) byte {
	if len(coeffs) == 0 {
		return 0
	}
	result := coeffs[len(coeffs)-1]
	for i := len(coeffs) - 2; i >= 0; i-- {
		result = Add(Mul(result, x), coeffs[i])
	}
	return result
}

// lagrangeBasisAtZero returns l_i(0) for every share. The basis only depends
// on the indices, so it is computed once and reused for every byte position.
func lagrangeBasisAtZero(shares []Share) ([]byte, error) {
	basis := make([]byte, len(shares))
	for i := range shares {
		xi := shares[i].Index
		var numerator, denominator byte = 1, 1
		for j := range shares {
			if i == j {
				continue
			}
			xj := shares[j].Index
			// (0 - xj) = xj in characteristic 2
			numerator = Mul(numerator, xj)
			denominator = Mul(denominator, Sub(xi, xj))
		}
		b, err := Div(numerator, denominator)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
		}
		basis[i] = b
	}
	return basis, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
