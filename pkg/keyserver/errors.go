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
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidRequest indicates a malformed fetch request.
	ErrInvalidRequest = errors.New("keyserver: invalid request")

	// ErrPolicyDenied indicates that the access policy rejected an identity.
	ErrPolicyDenied = errors.New("keyserver: access denied by policy")

	// ErrRateLimited indicates that the key server throttled the caller.
	ErrRateLimited = errors.New("keyserver: rate limited")

	// ErrInvalidKey indicates a returned key that does not verify against the
	// server's public key.
	ErrInvalidKey = errors.New("keyserver: invalid user secret key")

	// ErrMissingKey indicates a response without a key for the requested
	// identity.
	ErrMissingKey = errors.New("keyserver: no key for identity")
)

// ServerError is a non-2xx response from a key server.
type ServerError struct {
	StatusCode int
	Code       string
	Message    string
}

// Error implements the error interface
func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("key server returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("key server returned %d", e.StatusCode)
}

// Unwrap maps the status code onto the package sentinels.
func (e *ServerError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return ErrInvalidRequest
	case http.StatusForbidden:
		return ErrPolicyDenied
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return nil
	}
}
