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

package rest

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/keyserver"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/seal"
)

// Common errors
var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrForbidden        = errors.New("forbidden")
	ErrRateLimited      = errors.New("rate limited")
	ErrNotFound         = errors.New("not found")
	ErrMethodNotAllowed = errors.New("method not allowed")
	ErrInternalError    = errors.New("internal server error")
)

// writeErrorWithMessage writes a JSON error body.
func writeErrorWithMessage(w http.ResponseWriter, err error, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := keyserver.ErrorResponse{
		Error:   err.Error(),
		Message: message,
		Code:    statusCode,
	}
	if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
		log.Printf("Failed to encode error response: %v", encErr)
	}
}

// mapError maps a service error to its status, public error and message.
// Internal errors are not echoed to the caller.
func mapError(err error) (int, string, error) {
	switch {
	case errors.Is(err, keyserver.ErrPolicyDenied):
		return http.StatusForbidden, err.Error(), ErrForbidden
	case errors.Is(err, keyserver.ErrInvalidRequest),
		errors.Is(err, seal.ErrInvalidConfiguration):
		return http.StatusBadRequest, err.Error(), ErrInvalidRequest
	case errors.Is(err, keyserver.ErrRateLimited):
		return http.StatusTooManyRequests, "too many requests", ErrRateLimited
	default:
		return http.StatusInternalServerError, "an unexpected error occurred", ErrInternalError
	}
}

func handleError(w http.ResponseWriter, err error) {
	status, message, public := mapError(err)
	writeErrorWithMessage(w, public, message, status)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON response: %v", err)
	}
}
