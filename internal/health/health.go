// SPDX-License-Identifier: MIT

// Package health serves liveness and readiness probes for the voxhired
// daemon. Liveness is unconditional; readiness runs the registered
// component checks with a short deadline.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/voxhire/voxhire/internal/log"
	"github.com/voxhire/voxhire/internal/version"
)

// Status of one component or of the daemon as a whole.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

const checkTimeout = 5 * time.Second

// Checker probes one component. A nil error means healthy.
type Checker func(ctx context.Context) error

// check is one registered component probe. Optional checks degrade
// readiness instead of failing it.
type check struct {
	name     string
	probe    Checker
	optional bool
}

// Manager runs registered checks and serves the probe endpoints.
type Manager struct {
	logger  zerolog.Logger
	started time.Time

	mu     sync.Mutex
	checks []check
}

// NewManager creates an empty manager; components register themselves
// during daemon bootstrap.
func NewManager() *Manager {
	return &Manager{
		logger:  log.WithComponent("health"),
		started: time.Now(),
	}
}

// Register adds a required component check. Failure makes the daemon
// not ready.
func (m *Manager) Register(name string, probe Checker) {
	m.add(name, probe, false)
}

// RegisterOptional adds a component whose failure only degrades readiness.
// Used for the LLM and SMTP collaborators, which have fallbacks.
func (m *Manager) RegisterOptional(name string, probe Checker) {
	m.add(name, probe, true)
}

func (m *Manager) add(name string, probe Checker, optional bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks = append(m.checks, check{name: name, probe: probe, optional: optional})
}

type componentResult struct {
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

type probeResponse struct {
	Status     Status                     `json:"status"`
	Version    string                     `json:"version"`
	UptimeSecs int64                      `json:"uptime_seconds"`
	Components map[string]componentResult `json:"components,omitempty"`
}

// HandleLive answers the liveness probe. The process responding is the
// whole check.
func (m *Manager) HandleLive(w http.ResponseWriter, r *http.Request) {
	m.write(w, http.StatusOK, probeResponse{
		Status:     StatusHealthy,
		Version:    version.Version,
		UptimeSecs: int64(time.Since(m.started).Seconds()),
	})
}

// HandleReady answers the readiness probe by running every registered
// check.
func (m *Manager) HandleReady(w http.ResponseWriter, r *http.Request) {
	overall, components := m.Run(r.Context())

	status := http.StatusOK
	if overall == StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	m.write(w, status, probeResponse{
		Status:     overall,
		Version:    version.Version,
		UptimeSecs: int64(time.Since(m.started).Seconds()),
		Components: components,
	})
}

// Run executes all checks and reports the aggregate status.
func (m *Manager) Run(ctx context.Context) (Status, map[string]componentResult) {
	m.mu.Lock()
	checks := make([]check, len(m.checks))
	copy(checks, m.checks)
	m.mu.Unlock()

	overall := StatusHealthy
	components := make(map[string]componentResult, len(checks))
	for _, c := range checks {
		result := m.runOne(ctx, c)
		components[c.name] = result
		switch result.Status {
		case StatusUnhealthy:
			overall = StatusUnhealthy
		case StatusDegraded:
			if overall == StatusHealthy {
				overall = StatusDegraded
			}
		}
	}
	return overall, components
}

func (m *Manager) runOne(ctx context.Context, c check) componentResult {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	err := c.probe(ctx)
	if err == nil {
		return componentResult{Status: StatusHealthy}
	}

	m.logger.Warn().Err(err).
		Str("component", c.name).
		Bool("optional", c.optional).
		Str("event", "health.check_failed").
		Msg("component check failed")
	if c.optional {
		return componentResult{Status: StatusDegraded, Error: err.Error()}
	}
	return componentResult{Status: StatusUnhealthy, Error: err.Error()}
}

func (m *Manager) write(w http.ResponseWriter, status int, body probeResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		m.logger.Warn().Err(err).Str("event", "health.write_failed").Msg("probe response dropped")
	}
}
