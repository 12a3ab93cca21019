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

import "errors"

var (
	// ErrAuthenticationFailure indicates a GCM tag or HMAC mismatch.
	// No plaintext is returned alongside it.
	ErrAuthenticationFailure = errors.New("dem: authentication failed")

	// ErrUnsupportedVariant indicates a variant tag outside the known set.
	ErrUnsupportedVariant = errors.New("dem: unsupported variant")

	// ErrInvalidKeySize indicates a key that is not KeySize bytes.
	ErrInvalidKeySize = errors.New("dem: invalid key size")

	// ErrKeyReuse is returned by KeyGuard when a key is presented twice.
	// Encrypting two plaintexts under one key and the fixed IV breaks
	// confidentiality of both.
	ErrKeyReuse = errors.New("dem: key reuse detected")
)
