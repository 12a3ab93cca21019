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

// GF(256) arithmetic using AES's finite field representation.
// The field is defined by the irreducible polynomial x^8 + x^4 + x^3 + x + 1.

// Pre-computed logarithm and exponentiation tables for GF(256).
// gfExpTable is doubled in length so that log sums never need a modulo.
var (
	gfLogTable [256]byte
	gfExpTable [510]byte
)

func init() {
	// Generator 0x03, irreducible polynomial 0x11B (AES polynomial)
	var x byte = 1
	for i := 0; i < 255; i++ {
		gfExpTable[i] = x
		gfExpTable[i+255] = x
		gfLogTable[x] = byte(i)
		x = gfMultiply(x, 0x03)
	}
}

// Add performs addition in GF(256), which is XOR.
func Add(a, b byte) byte {
	return a ^ b
}

// Sub performs subtraction in GF(256), which is also XOR.
func Sub(a, b byte) byte {
	return a ^ b
}

// Mul performs multiplication in GF(256).
func Mul(a, b byte) byte {
	if a == 0 || b == 0 {
		return 0
	}
	return gfExpTable[int(gfLogTable[a])+int(gfLogTable[b])]
}

// Div performs division in GF(256). Dividing by zero returns ErrDivisionByZero.
func Div(a, b byte) (byte, error) {
	if b == 0 {
		return 0, ErrDivisionByZero
	}
	if a == 0 {
		return 0, nil
	}
	return gfExpTable[int(gfLogTable[a])+255-int(gfLogTable[b])], nil
}

// Inverse returns the multiplicative inverse of a in GF(256).
func Inverse(a byte) (byte, error) {
	return Div(1, a)
}

// gfMultiply performs multiplication in GF(256) using the peasant algorithm.
// This is used only during table initialization.
func gfMultiply(a, b byte) byte {
	var p byte
	for i := 0; i < 8; i++ {
		if b&1 != 0 {
			p ^= a
		}
		highBit := a & 0x80
		a <<= 1
		if highBit != 0 {
			a ^= 0x1B // x^8 + x^4 + x^3 + x + 1
		}
		b >>= 1
	}
	return p
}
