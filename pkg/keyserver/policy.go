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

package keyserver

import (
	"context"
	"fmt"
	"sync"

	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/seal"
)

// PolicyRequest is what a PolicyChecker sees for one identity.
type PolicyRequest struct {
	PackageID   seal.ObjectID
	ID          []byte
	PTB         []byte
	Certificate *Certificate
}

// PolicyChecker decides whether the caller may receive the key for one
// identity. A nil return grants access.
type PolicyChecker interface {
	Check(ctx context.Context, req *PolicyRequest) error
}

// PolicyFunc adapts a function to PolicyChecker.
type PolicyFunc func(ctx context.Context, req *PolicyRequest) error

// Check calls f.
func (f PolicyFunc) Check(ctx context.Context, req *PolicyRequest) error {
	return f(ctx, req)
}

// AllowAll grants every request. Only suitable for development servers.
type AllowAll struct{}

// Check always returns nil.
func (AllowAll) Check(context.Context, *PolicyRequest) error { return nil }

// PackageAllowlist grants keys only for identities under listed packages.
type PackageAllowlist struct {
	mu       sync.RWMutex
	packages map[seal.ObjectID]struct{}
}

// NewPackageAllowlist creates an allowlist holding ids.
func NewPackageAllowlist(ids ...seal.ObjectID) *PackageAllowlist {
	a := &PackageAllowlist{packages: make(map[seal.ObjectID]struct{}, len(ids))}
	for _, id := range ids {
		a.packages[id] = struct{}{}
	}
	return a
}

// Allow adds a package.
func (a *PackageAllowlist) Allow(id seal.ObjectID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.packages[id] = struct{}{}
}

// Revoke removes a package.
func (a *PackageAllowlist) Revoke(id seal.ObjectID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.packages, id)
}

// Check returns ErrPolicyDenied for packages not on the list.
func (a *PackageAllowlist) Check(_ context.Context, req *PolicyRequest) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if _, ok := a.packages[req.PackageID]; !ok {
		return fmt.Errorf("%w: package %s not allowed", ErrPolicyDenied, req.PackageID)
	}
	return nil
}
