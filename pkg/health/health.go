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

// Package health implements liveness, readiness and startup probes for the
// key server.
package health

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/storage"
)

// Status represents the health status of a component.
type Status string

const (
	// StatusHealthy indicates the component is operating normally.
	StatusHealthy Status = "healthy"
	// StatusUnhealthy indicates the component is not functioning.
	StatusUnhealthy Status = "unhealthy"
	// StatusDegraded indicates the component works with reduced capacity.
	StatusDegraded Status = "degraded"
)

// DefaultCheckTimeout bounds each readiness check.
const DefaultCheckTimeout = 2 * time.Second

// CheckResult represents the result of a single health check.
type CheckResult struct {
	Name    string        `json:"name"`
	Status  Status        `json:"status"`
	Message string        `json:"message,omitempty"`
	Latency time.Duration `json:"latency"`
	Error   string        `json:"error,omitempty"`
}

// CheckFunc performs one readiness check. It should honor ctx.
type CheckFunc func(ctx context.Context) CheckResult

// Checker holds the readiness checks and startup state of a process.
type Checker struct {
	mu        sync.RWMutex
	started   bool
	startTime time.Time
	timeout   time.Duration
	checks    map[string]CheckFunc
}

// NewChecker creates a checker with DefaultCheckTimeout.
func NewChecker() *Checker {
	return &Checker{
		checks:    make(map[string]CheckFunc),
		startTime: time.Now(),
		timeout:   DefaultCheckTimeout,
	}
}

// SetTimeout changes the per-check timeout.
func (c *Checker) SetTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.timeout = d
	}
}

// RegisterCheck adds or replaces a readiness check.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	if check == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// UnregisterCheck removes a readiness check.
func (c *Checker) UnregisterCheck(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// Checks returns the sorted names of the registered checks.
func (c *Checker) Checks() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// MarkStarted marks initialization complete.
func (c *Checker) MarkStarted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
}

// MarkNotStarted clears the started flag, e.g. during shutdown.
func (c *Checker) MarkNotStarted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = false
}

// IsStarted returns true once MarkStarted has been called.
func (c *Checker) IsStarted() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.started
}

// Uptime returns how long the checker has existed.
func (c *Checker) Uptime() time.Duration {
	return time.Since(c.startTime)
}

// Live reports that the process is running. It never fails.
func (c *Checker) Live(context.Context) CheckResult {
	return CheckResult{Name: "liveness", Status: StatusHealthy, Message: "alive"}
}

// Ready runs every registered check, each under the checker timeout, and
// returns the results sorted by name.
func (c *Checker) Ready(ctx context.Context) []CheckResult {
	c.mu.RLock()
	timeout := c.timeout
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	if len(checks) == 0 {
		return []CheckResult{{Name: "default", Status: StatusHealthy, Message: "no readiness checks configured"}}
	}

	results := make([]CheckResult, 0, len(checks))
	for name, check := range checks {
		cctx, cancel := context.WithTimeout(ctx, timeout)
		start := time.Now()
		result := check(cctx)
		cancel()
		result.Latency = time.Since(start)
		if result.Name == "" {
			result.Name = name
		}
		results = append(results, result)
	}
	slices.SortFunc(results, func(a, b CheckResult) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return results
}

// Startup fails until MarkStarted is called.
func (c *Checker) Startup(context.Context) CheckResult {
	if !c.IsStarted() {
		return CheckResult{Name: "startup", Status: StatusUnhealthy, Message: "initialization not complete"}
	}
	return CheckResult{
		Name:    "startup",
		Status:  StatusHealthy,
		Message: fmt.Sprintf("initialized (uptime: %s)", c.Uptime().Round(time.Second)),
	}
}

// IsHealthy returns true if all readiness checks pass.
func (c *Checker) IsHealthy(ctx context.Context) bool {
	return AggregateStatus(c.Ready(ctx)) == StatusHealthy
}

// AggregateStatus returns unhealthy if any result is unhealthy, degraded if
// any is degraded, and healthy otherwise.
func AggregateStatus(results []CheckResult) Status {
	status := StatusHealthy
	for _, r := range results {
		switch r.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}

// StorageKeyCheck reports unhealthy unless key exists in backend. The key
// server registers it for its master secret.
func StorageKeyCheck(name string, backend storage.Backend, key string) CheckFunc {
	return func(ctx context.Context) CheckResult {
		if err := ctx.Err(); err != nil {
			return CheckResult{Name: name, Status: StatusUnhealthy, Error: err.Error()}
		}
		ok, err := backend.Exists(key)
		switch {
		case err != nil:
			return CheckResult{Name: name, Status: StatusUnhealthy, Message: "storage unavailable", Error: err.Error()}
		case !ok:
			return CheckResult{Name: name, Status: StatusUnhealthy, Message: "key not found"}
		default:
			return CheckResult{Name: name, Status: StatusHealthy, Message: "key present"}
		}
	}
}
