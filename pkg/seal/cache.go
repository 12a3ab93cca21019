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
	"sync"

	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/pairing"
)

type cacheKey struct {
	identity string
	server   ObjectID
}

// KeyCache holds verified user secret keys by (full identity, key server).
// It is safe for concurrent use; Decrypt only reads it.
type KeyCache struct {
	mu   sync.RWMutex
	keys map[cacheKey]*pairing.G1
}

// NewKeyCache creates an empty cache.
func NewKeyCache() *KeyCache {
	return &KeyCache{keys: make(map[cacheKey]*pairing.G1)}
}

// Put stores usk for fullID and server, replacing any previous entry.
func (c *KeyCache) Put(fullID []byte, server ObjectID, usk *pairing.G1) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys[cacheKey{identity: string(fullID), server: server}] = usk
}

// Get returns the cached key for fullID and server.
func (c *KeyCache) Get(fullID []byte, server ObjectID) (*pairing.G1, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	usk, ok := c.keys[cacheKey{identity: string(fullID), server: server}]
	return usk, ok
}

// Has reports whether a key is cached for fullID and server.
func (c *KeyCache) Has(fullID []byte, server ObjectID) bool {
	_, ok := c.Get(fullID, server)
	return ok
}

// Available counts the services of obj whose key server has a cached key.
func (c *KeyCache) Available(obj *EncryptedObject) int {
	fullID := obj.FullIdentity()
	n := 0
	for _, s := range obj.Services {
		if c.Has(fullID, s.ObjectID) {
			n++
		}
	}
	return n
}

// Len returns the number of cached keys.
func (c *KeyCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.keys)
}

// Clear drops every cached key.
func (c *KeyCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = make(map[cacheKey]*pairing.G1)
}
