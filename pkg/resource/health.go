// pkg/resource/health.go
package resource

import (
	"context"
	"fmt"
)

// HealthCheck reports the supervisor unhealthy when memory is over the limit,
// the task count nears its cap, or any task has failed.
type HealthCheck struct {
	supervisor *Supervisor
}

// NewHealthCheck creates a health check for the supervisor
func NewHealthCheck(supervisor *Supervisor) *HealthCheck {
	return &HealthCheck{supervisor: supervisor}
}

// Name returns the name of this health check
func (h *HealthCheck) Name() string {
	return "resource"
}

// Check verifies that resource usage is within limits
func (h *HealthCheck) Check(ctx context.Context) error {
	stats := h.supervisor.Stats()

	if stats.MemoryUsageMB > stats.MaxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB", stats.MemoryUsageMB, stats.MaxMemoryMB)
	}

	threshold := int64(float64(stats.MaxTasks) * 0.8)
	if stats.Tasks > threshold {
		return fmt.Errorf("task count %d exceeds 80%% threshold (%d/%d)", stats.Tasks, threshold, stats.MaxTasks)
	}

	if stats.FailedTasks > 0 {
		return fmt.Errorf("%d supervised tasks failed", stats.FailedTasks)
	}
	return nil
}
