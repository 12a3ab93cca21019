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
	"net/http"

	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/health"
)

// HealthCheckResponse represents the response for health check endpoints.
type HealthCheckResponse struct {
	Status  health.Status        `json:"status"`
	Message string               `json:"message,omitempty"`
	Checks  []health.CheckResult `json:"checks,omitempty"`
}

// LivenessHandler handles GET /health/live.
func (s *Server) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	result := s.health.Live(r.Context())
	writeJSON(w, HealthCheckResponse{Status: result.Status, Message: result.Message}, statusFor(result.Status))
}

// ReadinessHandler handles GET /health/ready. Degraded still serves
// traffic and answers 200.
func (s *Server) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	results := s.health.Ready(r.Context())
	status := health.AggregateStatus(results)

	resp := HealthCheckResponse{Status: status, Checks: results}
	switch status {
	case health.StatusHealthy:
		resp.Message = "all checks passed"
	case health.StatusDegraded:
		resp.Message = "service is degraded"
	default:
		resp.Message = "one or more checks failed"
	}
	writeJSON(w, resp, statusFor(status))
}

// StartupHandler handles GET /health/startup.
func (s *Server) StartupHandler(w http.ResponseWriter, r *http.Request) {
	result := s.health.Startup(r.Context())
	writeJSON(w, HealthCheckResponse{Status: result.Status, Message: result.Message}, statusFor(result.Status))
}

func statusFor(s health.Status) int {
	if s == health.StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}
