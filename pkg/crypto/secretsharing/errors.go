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

package secretsharing

import "errors"

var (
	// ErrInvalidConfiguration indicates bad threshold/share-count parameters
	// or an inconsistent share set.
	ErrInvalidConfiguration = errors.New("secretsharing: invalid configuration")

	// ErrDivisionByZero is returned by Div when the divisor is zero.
	ErrDivisionByZero = errors.New("secretsharing: division by zero in GF(256)")
)
