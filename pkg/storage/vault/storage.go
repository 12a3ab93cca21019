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

// Package vault provides a storage.Backend over the HashiCorp Vault KV
// version 2 secrets engine, so a key server can keep its master key out of
// the local filesystem.
package vault

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"

	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/storage"
)

// DefaultTimeout bounds each Vault request.
const DefaultTimeout = 10 * time.Second

// valueField is the KV field holding the base64 value.
const valueField = "value"

var (
	// ErrVaultConnection is returned when Vault cannot be reached or rejects
	// a request.
	ErrVaultConnection = errors.New("vault: request failed")

	// ErrInvalidResponse is returned when Vault returns an unexpected payload.
	ErrInvalidResponse = errors.New("vault: invalid response")
)

// Config holds the configuration for the Vault storage backend.
type Config struct {
	// Address is the Vault server address (e.g., "http://127.0.0.1:8200")
	Address string

	// Token is the Vault authentication token
	Token string

	// Mount is the KV v2 mount path (default: "secret")
	Mount string

	// Prefix is prepended to every key inside the mount.
	Prefix string

	// Namespace is the Vault namespace (Enterprise feature, optional)
	Namespace string

	// TLSSkipVerify disables TLS certificate verification (not recommended for production)
	TLSSkipVerify bool

	// Timeout bounds each request. Defaults to DefaultTimeout.
	Timeout time.Duration
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("vault address is required")
	}
	if c.Token == "" {
		return fmt.Errorf("vault token is required")
	}
	if c.Mount == "" {
		c.Mount = "secret"
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return nil
}

// Storage stores values as base64 strings in KV v2 secrets.
type Storage struct {
	logical *vault.Logical
	mount   string
	prefix  string
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
}

// New connects a backend to Vault. No request is made until first use.
func New(config *Config) (storage.Backend, error) {
	if config == nil {
		return nil, fmt.Errorf("vault config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	vc := vault.DefaultConfig()
	vc.Address = config.Address
	vc.Timeout = config.Timeout
	if config.TLSSkipVerify {
		if err := vc.ConfigureTLS(&vault.TLSConfig{Insecure: true}); err != nil {
			return nil, fmt.Errorf("failed to configure vault TLS: %w", err)
		}
	}

	client, err := vault.NewClient(vc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVaultConnection, err)
	}
	client.SetToken(config.Token)
	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
	}

	return &Storage{
		logical: client.Logical(),
		mount:   strings.Trim(config.Mount, "/"),
		prefix:  strings.Trim(config.Prefix, "/"),
		timeout: config.Timeout,
	}, nil
}

func (s *Storage) dataPath(key string) string {
	return s.mount + "/data/" + s.join(key)
}

func (s *Storage) metadataPath(key string) string {
	return s.mount + "/metadata/" + s.join(key)
}

func (s *Storage) join(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

func (s *Storage) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *Storage) check(key string) error {
	if s.closed {
		return storage.ErrClosed
	}
	if key == "" || strings.HasPrefix(key, "/") || strings.HasSuffix(key, "/") ||
		slices.Contains(strings.Split(key, "/"), "..") {
		return storage.ErrInvalidKey
	}
	return nil
}

// Get reads the latest version of key.
func (s *Storage) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(key); err != nil {
		return nil, err
	}

	ctx, cancel := s.context()
	defer cancel()
	secret, err := s.logical.ReadWithContext(ctx, s.dataPath(key))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrVaultConnection, key, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, storage.ErrNotFound
	}

	// KV v2 returns a null data object for deleted versions.
	data, ok := secret.Data["data"].(map[string]any)
	if !ok || data == nil {
		return nil, storage.ErrNotFound
	}
	encoded, ok := data[valueField].(string)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no %q field", ErrInvalidResponse, key, valueField)
	}
	value, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", storage.ErrInvalidData, key, err)
	}
	return value, nil
}

// Put writes a new version of key. Options are ignored.
func (s *Storage) Put(key string, value []byte, _ *storage.Options) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(key); err != nil {
		return err
	}

	ctx, cancel := s.context()
	defer cancel()
	_, err := s.logical.WriteWithContext(ctx, s.dataPath(key), map[string]any{
		"data": map[string]any{valueField: base64.StdEncoding.EncodeToString(value)},
	})
	if err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrVaultConnection, key, err)
	}
	return nil
}

// Delete removes key and all of its versions.
func (s *Storage) Delete(key string) error {
	exists, err := s.Exists(key)
	if err != nil {
		return err
	}
	if !exists {
		return storage.ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return storage.ErrClosed
	}
	ctx, cancel := s.context()
	defer cancel()
	if _, err := s.logical.DeleteWithContext(ctx, s.metadataPath(key)); err != nil {
		return fmt.Errorf("%w: delete %s: %w", ErrVaultConnection, key, err)
	}
	return nil
}

// List walks the metadata tree below the directory of prefix and returns
// the matching keys in sorted order.
func (s *Storage) List(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrClosed
	}

	dir := ""
	if i := strings.LastIndex(prefix, "/"); i >= 0 {
		dir = prefix[:i+1]
	}

	ctx, cancel := s.context()
	defer cancel()

	var keys []string
	pending := []string{dir}
	for len(pending) > 0 {
		d := pending[0]
		pending = pending[1:]

		path := s.mount + "/metadata/" + strings.TrimSuffix(s.join(d), "/")
		secret, err := s.logical.ListWithContext(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("%w: list %s: %w", ErrVaultConnection, d, err)
		}
		if secret == nil || secret.Data == nil {
			continue
		}
		entries, ok := secret.Data["keys"].([]any)
		if !ok {
			return nil, fmt.Errorf("%w: list %s", ErrInvalidResponse, d)
		}
		for _, e := range entries {
			name, ok := e.(string)
			if !ok {
				continue
			}
			full := d + name
			switch {
			case strings.HasSuffix(name, "/"):
				if strings.HasPrefix(full, prefix) || strings.HasPrefix(prefix, full) {
					pending = append(pending, full)
				}
			case strings.HasPrefix(full, prefix):
				keys = append(keys, full)
			}
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// Exists reports whether key has a live version.
func (s *Storage) Exists(key string) (bool, error) {
	_, err := s.Get(key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, storage.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Close marks the backend closed. The Vault token is left untouched.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	s.closed = true
	return nil
}
