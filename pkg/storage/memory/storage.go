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

// Package memory provides an in-memory storage.Backend for tests and
// ephemeral development key servers.
package memory

import (
	"slices"
	"strings"
	"sync"

	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/storage"
)

// Storage is an in-memory storage.Backend. Values are copied on the way in
// and on the way out.
type Storage struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// New creates an empty in-memory backend.
func New() storage.Backend {
	return &Storage{data: make(map[string][]byte)}
}

// Get returns a copy of the value for key.
func (s *Storage) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrClosed
	}
	value, ok := s.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return slices.Clone(value), nil
}

// Put stores a copy of value. Options are ignored.
func (s *Storage) Put(key string, value []byte, _ *storage.Options) error {
	if key == "" {
		return storage.ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrClosed
	}
	s.data[key] = append([]byte{}, value...)
	return nil
}

// Delete removes key. The old value is zeroed.
func (s *Storage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrClosed
	}
	value, ok := s.data[key]
	if !ok {
		return storage.ErrNotFound
	}
	clear(value)
	delete(s.data, key)
	return nil
}

// List returns the sorted keys under prefix.
func (s *Storage) List(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrClosed
	}
	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// Exists reports whether key is present.
func (s *Storage) Exists(key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, storage.ErrClosed
	}
	_, ok := s.data[key]
	return ok, nil
}

// Close zeroes and drops every value. Later calls return storage.ErrClosed;
// closing twice is allowed.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range s.data {
		clear(v)
	}
	s.data = nil
	s.closed = true
	return nil
}
