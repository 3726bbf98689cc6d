package orchestrator

import (
	"time"

	"github.com/modelaudit/modelaudit/pkg/probe"
)

// Health status values reported by the execution core
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// GetHealth reports the current health of the execution core. It is a pure
// read with no side effects, intended for polling by a health-check endpoint.
func (e *Executor) GetHealth() probe.HealthReport {
	successRate := e.recorder.RecentSuccessRate()
	breakerStates := e.breakers.States()

	openBreakers := 0
	for _, state := range breakerStates {
		if state == "OPEN" {
			openBreakers++
		}
	}

	status := StatusHealthy
	switch {
	case len(breakerStates) > 0 && openBreakers == len(breakerStates):
		status = StatusUnhealthy
	case openBreakers > 0 || successRate < 0.9:
		status = StatusDegraded
	}

	report := probe.HealthReport{
		Status:            status,
		RecentSuccessRate: successRate,
		CircuitStates:     breakerStates,
		RateLimiter:       e.limiter.Snapshot(),
		CheckedAt:         time.Now(),
	}
	if e.cache != nil {
		report.CacheStats = e.cache.Stats()
	}

	return report
}

// GetMetrics reports execution statistics. It is a pure read with no side
// effects.
func (e *Executor) GetMetrics() probe.MetricsReport {
	return e.recorder.Snapshot()
}
