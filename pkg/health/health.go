// Package health serves liveness and readiness probes for the match server.
// Readiness aggregates named checks: the simulation loop, the spectator
// stream listener and the resource supervisor each register one.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"

	// DefaultCheckTimeout bounds a readiness request
	DefaultCheckTimeout = 5 * time.Second
)

// HealthCheck is a single named probe
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthStatus is the aggregated readiness report
type HealthStatus struct {
	Status string                     `json:"status"`
	Checks map[string]ComponentHealth `json:"checks"`
}

// ComponentHealth is the result of one check
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthChecker holds the registered checks
type HealthChecker struct {
	checks  map[string]HealthCheck
	timeout time.Duration
	mu      sync.RWMutex
}

// NewHealthChecker creates an empty checker using DefaultCheckTimeout
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks:  make(map[string]HealthCheck),
		timeout: DefaultCheckTimeout,
	}
}

// AddCheck registers check, replacing any check with the same name
func (hc *HealthChecker) AddCheck(check HealthCheck) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[check.Name()] = check
}

// RemoveCheck removes a check by name
func (hc *HealthChecker) RemoveCheck(name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	delete(hc.checks, name)
}

// Names lists the registered checks in sorted order
func (hc *HealthChecker) Names() []string {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	names := make([]string, 0, len(hc.checks))
	for name := range hc.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckHealth runs every check. The report is healthy only if all of them pass.
func (hc *HealthChecker) CheckHealth(ctx context.Context) HealthStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	status := HealthStatus{
		Status: StatusHealthy,
		Checks: make(map[string]ComponentHealth, len(hc.checks)),
	}

	for name, check := range hc.checks {
		if err := check.Check(ctx); err != nil {
			status.Status = StatusUnhealthy
			status.Checks[name] = ComponentHealth{Status: StatusUnhealthy, Message: err.Error()}
			continue
		}
		status.Checks[name] = ComponentHealth{Status: StatusHealthy}
	}

	return status
}

// Routes registers /health and /ready on mux
func (hc *HealthChecker) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/health", hc.LivenessHandler)
	mux.HandleFunc("/ready", hc.ReadinessHandler)
}

// LivenessHandler answers 200 while the process can serve HTTP at all
func (hc *HealthChecker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ReadinessHandler answers 200 when every check passes and 503 otherwise
func (hc *HealthChecker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), hc.timeout)
	defer cancel()

	health := hc.CheckHealth(ctx)

	code := http.StatusOK
	if health.Status != StatusHealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, health)
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// SimulationHealthCheck fails when the runner loop is stopped or has not
// stepped a frame within maxFrameAge.
type SimulationHealthCheck struct {
	running     func() bool
	lastFrame   func() time.Time
	maxFrameAge time.Duration
	now         func() time.Time
}

// NewSimulationHealthCheck creates a check over the runner's state accessors
func NewSimulationHealthCheck(running func() bool, lastFrame func() time.Time, maxFrameAge time.Duration) *SimulationHealthCheck {
	return &SimulationHealthCheck{
		running:     running,
		lastFrame:   lastFrame,
		maxFrameAge: maxFrameAge,
		now:         time.Now,
	}
}

// Name returns "simulation"
func (s *SimulationHealthCheck) Name() string {
	return "simulation"
}

// Check verifies the loop is running and recent
func (s *SimulationHealthCheck) Check(ctx context.Context) error {
	if !s.running() {
		return fmt.Errorf("simulation loop is not running")
	}
	last := s.lastFrame()
	if last.IsZero() {
		return fmt.Errorf("no frame simulated yet")
	}
	if age := s.now().Sub(last); age > s.maxFrameAge {
		return fmt.Errorf("last frame %s ago exceeds %s", age.Round(time.Millisecond), s.maxFrameAge)
	}
	return nil
}

// StreamHealthCheck fails while the spectator listener is down
type StreamHealthCheck struct {
	listening func() bool
}

// NewStreamHealthCheck creates a check over the stream server's listener state
func NewStreamHealthCheck(listening func() bool) *StreamHealthCheck {
	return &StreamHealthCheck{listening: listening}
}

// Name returns "stream"
func (n *StreamHealthCheck) Name() string {
	return "stream"
}

func (n *StreamHealthCheck) Check(ctx context.Context) error {
	if !n.listening() {
		return fmt.Errorf("spectator stream listener is not active")
	}
	return nil
}
