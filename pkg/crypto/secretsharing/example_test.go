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

package secretsharing_test

import (
	"fmt"
	"log"

	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/secretsharing"
)

// ExampleSplit demonstrates splitting a key across five servers.
func ExampleSplit() {
	secret := []byte("my secret key")
	shares, err := secretsharing.Split(secret, 3, 5)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Secret split into %d shares\n", len(shares))

	reconstructed, err := secretsharing.Combine(shares[:3])
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Secret reconstructed successfully: %v\n", string(reconstructed) == string(secret))

	// Output:
	// Secret split into 5 shares
	// Secret reconstructed successfully: true
}

// ExampleCombine demonstrates reconstruction from a non-contiguous subset.
func ExampleCombine() {
	masterKey := []byte("master-signing-key-abc123")
	shares, _ := secretsharing.Split(masterKey, 3, 5)

	// Servers 1, 3 and 5 respond
	subset := []secretsharing.Share{shares[0], shares[2], shares[4]}

	reconstructedKey, _ := secretsharing.Combine(subset)

	fmt.Printf("Master key reconstructed: %v\n", string(reconstructedKey) == string(masterKey))

	// Output:
	// Master key reconstructed: true
}
