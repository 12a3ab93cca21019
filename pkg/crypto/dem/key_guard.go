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
	"sync"

	"golang.org/x/crypto/sha3"
)

// KeyGuard tracks fingerprints of keys that have already encrypted a
// plaintext and rejects any second use.
//
// AES256GCM always encrypts under the same IV, so a repeated key reveals the
// XOR of two plaintexts and lets an attacker forge tags. Derived keys are
// fresh per object, so a hit here means a caller bug.
//
// Only SHA3-256 fingerprints are stored, never the keys themselves. Memory
// grows by one fingerprint per encryption; call Clear on long-lived guards
// once the fingerprints are no longer needed.
//
// Example usage:
//
//	guard := dem.NewKeyGuard(true)
//	if err := guard.CheckAndRecord(key); err != nil {
//	    return err
//	}
//	blob, mac, err := dem.Encrypt(dem.AES256GCM, key, plaintext, aad)
type KeyGuard struct {
	enabled bool
	seen    map[[32]byte]struct{}
	mu      sync.RWMutex
}

// NewKeyGuard creates a guard. A disabled guard accepts every key.
func NewKeyGuard(enabled bool) *KeyGuard {
	return &KeyGuard{
		enabled: enabled,
		seen:    make(map[[32]byte]struct{}),
	}
}

func fingerprint(key []byte) [32]byte {
	return sha3.Sum256(key)
}

// CheckAndRecord records key and returns ErrKeyReuse if it was seen before.
// It is safe for concurrent use.
func (g *KeyGuard) CheckAndRecord(key []byte) error {
	if g == nil {
		return nil
	}
	fp := fingerprint(key)

	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.enabled {
		return nil
	}
	if _, exists := g.seen[fp]; exists {
		return ErrKeyReuse
	}
	g.seen[fp] = struct{}{}
	return nil
}

// Contains reports whether key was recorded, without recording it.
func (g *KeyGuard) Contains(key []byte) bool {
	if g == nil {
		return false
	}
	fp := fingerprint(key)

	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.enabled {
		return false
	}
	_, exists := g.seen[fp]
	return exists
}

// Count returns the number of recorded fingerprints.
func (g *KeyGuard) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.seen)
}

// Clear forgets every recorded fingerprint.
func (g *KeyGuard) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seen = make(map[[32]byte]struct{})
}

// IsEnabled reports whether the guard is active.
func (g *KeyGuard) IsEnabled() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.enabled
}

// SetEnabled toggles the guard. Recorded fingerprints are kept.
func (g *KeyGuard) SetEnabled(enabled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.enabled = enabled
}

// EncryptOnce records key in the guard and then encrypts. A reused key is
// rejected before any ciphertext is produced.
func (g *KeyGuard) EncryptOnce(v Variant, key, plaintext, aad []byte) (blob, mac []byte, err error) {
	if _, err := lookup(v, key); err != nil {
		return nil, nil, err
	}
	if err := g.CheckAndRecord(key); err != nil {
		return nil, nil, err
	}
	return Encrypt(v, key, plaintext, aad)
}
