package integrations

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/modelaudit/modelaudit/pkg/errors"
	"github.com/modelaudit/modelaudit/pkg/probe"
)

// Manager manages the lifecycle of the registered scanner integrations
type Manager struct {
	adapters  map[string]probe.ScannerAdapter
	health    map[string]IntegrationHealth
	mu        sync.RWMutex
	startTime time.Time
}

// IntegrationHealth tracks the liveness bookkeeping for one integration
type IntegrationHealth struct {
	Status       string    `json:"status"`
	LastCheck    time.Time `json:"last_check"`
	LastError    string    `json:"last_error,omitempty"`
	CheckCount   int64     `json:"check_count"`
	FailureCount int64     `json:"failure_count"`
}

// Integration status values
const (
	IntegrationStatusHealthy   = "healthy"
	IntegrationStatusDegraded  = "degraded"
	IntegrationStatusUnhealthy = "unhealthy"
	IntegrationStatusUnknown   = "unknown"
)

// NewManager creates a new integration manager
func NewManager() *Manager {
	return &Manager{
		adapters:  make(map[string]probe.ScannerAdapter),
		health:    make(map[string]IntegrationHealth),
		startTime: time.Now(),
	}
}

// Register registers a scanner integration
func (m *Manager) Register(adapter probe.ScannerAdapter) error {
	if adapter == nil {
		return errors.NewValidationError("integration cannot be nil")
	}
	name := adapter.Name()
	if name == "" {
		return errors.NewValidationError("integration name cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.adapters[name]; exists {
		return errors.NewValidationError(fmt.Sprintf("integration %s is already registered", name))
	}

	m.adapters[name] = adapter
	m.health[name] = IntegrationHealth{
		Status:    IntegrationStatusUnknown,
		LastCheck: time.Now(),
	}

	return nil
}

// Unregister removes an integration from the manager
func (m *Manager) Unregister(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.adapters[name]; !exists {
		return errors.NewNotFoundError("integration")
	}

	delete(m.adapters, name)
	delete(m.health, name)

	return nil
}

// Get retrieves an integration by name
func (m *Manager) Get(name string) (probe.ScannerAdapter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	adapter, exists := m.adapters[name]
	if !exists {
		return nil, errors.NewNotFoundError("integration")
	}

	return adapter, nil
}

// List returns the names of all registered integrations
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.adapters))
	for name := range m.adapters {
		names = append(names, name)
	}

	return names
}

// HealthCheck probes one integration and records the outcome. The scanner's
// probe listing doubles as the liveness call; the execution-core report
// decides healthy versus degraded.
func (m *Manager) HealthCheck(ctx context.Context, name string) (probe.HealthReport, error) {
	m.mu.RLock()
	adapter, exists := m.adapters[name]
	m.mu.RUnlock()

	if !exists {
		return probe.HealthReport{}, errors.NewNotFoundError("integration")
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := adapter.ListProbes(checkCtx)
	report := adapter.Health()

	m.mu.Lock()
	health := m.health[name]
	health.LastCheck = time.Now()
	health.CheckCount++

	if err != nil {
		health.Status = IntegrationStatusUnhealthy
		health.LastError = err.Error()
		health.FailureCount++
	} else {
		health.Status = report.Status
		health.LastError = ""
	}

	m.health[name] = health
	m.mu.Unlock()

	return report, err
}

// HealthCheckAll checks every registered integration, continuing past
// individual failures
func (m *Manager) HealthCheckAll(ctx context.Context) map[string]probe.HealthReport {
	m.mu.RLock()
	names := make([]string, 0, len(m.adapters))
	for name := range m.adapters {
		names = append(names, name)
	}
	m.mu.RUnlock()

	reports := make(map[string]probe.HealthReport, len(names))
	for _, name := range names {
		report, _ := m.HealthCheck(ctx, name)
		reports[name] = report
	}

	return reports
}

// GetIntegrationHealth returns the recorded health bookkeeping for one
// integration
func (m *Manager) GetIntegrationHealth(name string) (IntegrationHealth, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	health, exists := m.health[name]
	if !exists {
		return IntegrationHealth{}, errors.NewNotFoundError("integration")
	}

	return health, nil
}

// Health returns an error when no integration is usable
func (m *Manager) Health() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.adapters) == 0 {
		return errors.NewInternalError("no integrations registered")
	}

	unhealthy := 0
	for _, health := range m.health {
		if health.Status == IntegrationStatusUnhealthy {
			unhealthy++
		}
	}

	if unhealthy == len(m.health) {
		return errors.NewInternalError("no healthy integrations available")
	}

	return nil
}

// Stats returns aggregate statistics for the manager
func (m *Manager) Stats() ManagerStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := ManagerStats{
		TotalIntegrations: len(m.adapters),
		Uptime:            time.Since(m.startTime),
		Integrations:      make(map[string]IntegrationStats, len(m.adapters)),
	}

	for name, health := range m.health {
		stats.Integrations[name] = IntegrationStats{
			Name:         name,
			Status:       health.Status,
			LastCheck:    health.LastCheck,
			CheckCount:   health.CheckCount,
			FailureCount: health.FailureCount,
			LastError:    health.LastError,
		}

		switch health.Status {
		case IntegrationStatusHealthy:
			stats.HealthyIntegrations++
		case IntegrationStatusDegraded:
			stats.DegradedIntegrations++
		case IntegrationStatusUnhealthy:
			stats.UnhealthyIntegrations++
		default:
			stats.UnknownIntegrations++
		}
	}

	return stats
}

// ManagerStats represents aggregate statistics for the integration manager
type ManagerStats struct {
	TotalIntegrations     int                         `json:"total_integrations"`
	HealthyIntegrations   int                         `json:"healthy_integrations"`
	DegradedIntegrations  int                         `json:"degraded_integrations"`
	UnhealthyIntegrations int                         `json:"unhealthy_integrations"`
	UnknownIntegrations   int                         `json:"unknown_integrations"`
	Uptime                time.Duration               `json:"uptime"`
	Integrations          map[string]IntegrationStats `json:"integrations"`
}

// IntegrationStats represents statistics for a single integration
type IntegrationStats struct {
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	LastCheck    time.Time `json:"last_check"`
	CheckCount   int64     `json:"check_count"`
	FailureCount int64     `json:"failure_count"`
	LastError    string    `json:"last_error,omitempty"`
}
