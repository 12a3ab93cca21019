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

// Package secretsharing implements Shamir's Secret Sharing over GF(256).
//
// A secret is split into N shares so that any M (threshold) of them
// reconstruct it while M-1 shares reveal nothing. Each byte of the secret is
// shared independently as the constant term of a random polynomial of degree
// M-1:
//
//	p(x) = a0 + a1*x + a2*x^2 + ... + a(M-1)*x^(M-1)
//
// Share i is p(i) for i = 1..N. Reconstruction interpolates at x=0.
//
// All arithmetic is performed in GF(2^8) with the AES polynomial (0x11B);
// addition is XOR and multiplication uses log/exp tables with generator 0x03.
//
// # Usage Example
//
//	shares, err := secretsharing.Split(baseKey, 3, 5)
//	if err != nil {
//	    return err
//	}
//
//	// Later, any 3 shares
//	key, err := secretsharing.Combine([]secretsharing.Share{shares[0], shares[2], shares[4]})
//
// # Integrity
//
// Shares carry no checksum. Combining fewer than M shares, or a corrupted
// share, silently produces a wrong secret. The seal orchestrator detects this
// by re-deriving the encapsulation nonce from the reconstructed key.
//
// # Constraints
//
//   - 1 <= M <= N <= 255
//   - Share indices are bytes (1-255), index 0 is reserved for the secret
//   - Every call to Split draws fresh coefficients from a CSPRNG
package secretsharing
