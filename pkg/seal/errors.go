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
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration indicates a bad threshold, server set, key
	// length or variant. It is raised before any randomness is drawn.
	ErrInvalidConfiguration = errors.New("seal: invalid configuration")

	// ErrInsufficientShares indicates fewer than threshold partial keys.
	ErrInsufficientShares = errors.New("seal: insufficient shares")

	// ErrIntegrityCheckFailed indicates the reconstructed randomness does
	// not reproduce the stored nonce.
	ErrIntegrityCheckFailed = errors.New("seal: integrity check failed")

	// ErrAuthenticationFailure indicates a GCM tag or HMAC mismatch.
	ErrAuthenticationFailure = errors.New("seal: authentication failure")

	// ErrUnsupportedVariant indicates an unknown KEM or DEM tag.
	ErrUnsupportedVariant = errors.New("seal: unsupported variant")

	// ErrSerialization indicates a malformed encoded object.
	ErrSerialization = errors.New("seal: serialization error")
)

// InsufficientSharesError reports how many partial keys were available.
type InsufficientSharesError struct {
	Have      int
	Threshold int
}

// Error implements the error interface
func (e *InsufficientSharesError) Error() string {
	return fmt.Sprintf("%s: have %d partial keys, need %d", ErrInsufficientShares, e.Have, e.Threshold)
}

// Unwrap returns ErrInsufficientShares
func (e *InsufficientSharesError) Unwrap() error {
	return ErrInsufficientShares
}

// ErrorType classifies err into a short label for metrics and API responses.
func ErrorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidConfiguration):
		return "invalid_configuration"
	case errors.Is(err, ErrInsufficientShares):
		return "insufficient_shares"
	case errors.Is(err, ErrIntegrityCheckFailed):
		return "integrity_check_failed"
	case errors.Is(err, ErrAuthenticationFailure):
		return "authentication_failure"
	case errors.Is(err, ErrUnsupportedVariant):
		return "unsupported_variant"
	case errors.Is(err, ErrSerialization):
		return "serialization"
	default:
		return "internal"
	}
}
