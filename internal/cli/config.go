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

package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/viol3/Sui-Unity-SDK-sub000/internal/config"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/dem"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/keyserver"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/seal"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/storage"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/storage/file"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/storage/memory"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/storage/vault"
)

// keyServerClient builds the fetch client from the client section.
func (a *app) keyServerClient() *keyserver.Client {
	c := &a.cfg.Client
	return keyserver.NewClient(&keyserver.ClientConfig{
		RequestTimeout: c.RequestTimeout,
		RetryMax:       c.RetryMax,
		RetryWaitMin:   c.RetryWaitMin,
		RetryWaitMax:   c.RetryWaitMax,
		Logger:         a.logger,
	})
}

// sealClient resolves the configured key servers and builds a seal client
// over them.
func (a *app) sealClient(ctx context.Context, kc *keyserver.Client) (*seal.Client, error) {
	servers, err := resolveKeyServers(ctx, a.cfg.Client.KeyServers, kc)
	if err != nil {
		return nil, err
	}
	variant, err := dem.ParseVariant(a.cfg.Client.Variant)
	if err != nil {
		return nil, err
	}
	return seal.NewClient(&seal.ClientConfig{
		KeyServers: servers,
		Threshold:  a.cfg.Client.Threshold,
		Variant:    variant,
		Logger:     a.logger,
	})
}

// resolveKeyServers turns config entries into key servers. Entries without
// a public key are discovered over HTTP, and the advertised object id must
// match the configured one.
func resolveKeyServers(ctx context.Context, entries []config.KeyServerEntry, kc *keyserver.Client) ([]seal.KeyServer, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no key servers configured", seal.ErrInvalidConfiguration)
	}
	servers := make([]seal.KeyServer, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		id, err := seal.ParseObjectID(e.ObjectID)
		if err != nil {
			return nil, err
		}
		if e.PublicKey != "" {
			pk, err := e.ParsePublicKey()
			if err != nil {
				return nil, fmt.Errorf("key server %s: %w", id, err)
			}
			servers = append(servers, seal.KeyServer{ObjectID: id, PublicKey: pk, Name: e.Name, URL: e.URL})
			continue
		}

		ks, err := kc.Discover(ctx, e.Name, e.URL)
		if err != nil {
			return nil, fmt.Errorf("key server %s: %w", id, err)
		}
		if ks.ObjectID != id {
			return nil, fmt.Errorf("%w: key server at %s reports %s, configured %s",
				keyserver.ErrInvalidKey, e.URL, ks.ObjectID, id)
		}
		servers = append(servers, ks)
	}
	return servers, nil
}

// openStorage opens the master key backend.
func openStorage(cfg *config.StorageConfig) (storage.Backend, error) {
	switch cfg.Backend {
	case config.StorageFile:
		return file.New(cfg.Path)
	case config.StorageVault:
		return vault.New(&vault.Config{
			Address:       cfg.Vault.Address,
			Token:         cfg.Vault.Token,
			Mount:         cfg.Vault.Mount,
			Prefix:        cfg.Vault.Prefix,
			Namespace:     cfg.Vault.Namespace,
			TLSSkipVerify: cfg.Vault.TLSSkipVerify,
		})
	case config.StorageMemory, "":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}

// buildPolicy creates the key release policy.
func buildPolicy(cfg *config.PolicyConfig) (keyserver.PolicyChecker, error) {
	switch cfg.Type {
	case config.PolicyAllowAll, "":
		return keyserver.AllowAll{}, nil
	case config.PolicyPackageAllowlist:
		ids := make([]seal.ObjectID, 0, len(cfg.Packages))
		for _, p := range cfg.Packages {
			id, err := seal.ParseObjectID(p)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return keyserver.NewPackageAllowlist(ids...), nil
	default:
		return nil, fmt.Errorf("unknown policy: %s", cfg.Type)
	}
}

// readInput reads a file, or stdin for "-".
func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	// #nosec G304 - path is provided by the operator
	return os.ReadFile(path)
}

// writeOutput writes a file with owner-only permissions, or stdout for "-".
func (a *app) writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := a.out.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0600)
}
