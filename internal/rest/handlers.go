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
	"fmt"
	"net/http"

	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/keyserver"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/logging"
)

// ServiceHandler handles GET /v1/service.
func (s *Server) ServiceHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.service.Info(), http.StatusOK)
}

// FetchKeyHandler handles POST /v1/fetch_key.
func (s *Server) FetchKeyHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req keyserver.FetchKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.DebugContext(r.Context(), "Malformed fetch request", logging.Error(err))
		handleError(w, fmt.Errorf("%w: %w", keyserver.ErrInvalidRequest, err))
		return
	}

	resp, err := s.service.FetchKeys(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, resp, http.StatusOK)
}
