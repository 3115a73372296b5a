package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/c360/sduiterm/component"
)

// StatusRecorder mirrors recorded health into the metrics pipeline
type StatusRecorder interface {
	RecordHealthStatus(component string, healthy bool)
}

// Monitor tracks health of multiple components in a thread-safe manner.
// Components may push statuses directly via Update, or register a
// Discoverable and let the sampling loop pull Health() on an interval.
type Monitor struct {
	mu         sync.RWMutex
	statuses   map[string]Status
	registered map[string]component.Discoverable
	recorder   StatusRecorder
	logger     *slog.Logger
}

// NewMonitor creates a new health monitor
func NewMonitor(logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		statuses:   make(map[string]Status),
		registered: make(map[string]component.Discoverable),
		logger:     logger,
	}
}

// SetRecorder attaches a metrics sink that receives every recorded status.
// A nil recorder keeps health tracking local.
func (m *Monitor) SetRecorder(r StatusRecorder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorder = r
}

// Register adds a component for periodic health sampling
func (m *Monitor) Register(name string, c component.Discoverable) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registered[name] = c
}

// Remove removes a component's recorded status
func (m *Monitor) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.statuses, name)
}

// Unregister removes a component from sampling and drops its last status
func (m *Monitor) Unregister(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.registered, name)
	delete(m.statuses, name)
}

// Sample pulls Health() from every registered component, records the result,
// and logs healthy/unhealthy transitions.
func (m *Monitor) Sample() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, c := range m.registered {
		status := FromComponentHealth(name, c.Health())
		prev, seen := m.statuses[name]
		m.statuses[name] = status
		if m.recorder != nil {
			m.recorder.RecordHealthStatus(name, status.Healthy)
		}

		if seen && prev.Healthy != status.Healthy {
			if status.Healthy {
				m.logger.Info("Component recovered", "component", name)
			} else {
				m.logger.Warn("Component unhealthy",
					"component", name,
					"message", status.Message,
					"error_count", status.Metrics.ErrorCount)
			}
		}
	}
}

// Run samples registered components on the given interval until the context
// is cancelled. Intended to run as a goroutine owned by the boot orchestrator.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sample()
		}
	}
}

// Update updates the health status for a named component
func (m *Monitor) Update(name string, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status.Component = name
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}

	m.statuses[name] = status
	if m.recorder != nil {
		m.recorder.RecordHealthStatus(name, status.Healthy)
	}
}

// UpdateHealthy is a convenience method to update a component as healthy
func (m *Monitor) UpdateHealthy(name, message string) {
	m.Update(name, NewHealthy(name, message))
}

// UpdateUnhealthy is a convenience method to update a component as unhealthy
func (m *Monitor) UpdateUnhealthy(name, message string) {
	m.Update(name, NewUnhealthy(name, message))
}

// UpdateDegraded is a convenience method to update a component as degraded
func (m *Monitor) UpdateDegraded(name, message string) {
	m.Update(name, NewDegraded(name, message))
}

// Get retrieves the health status for a named component
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status, exists := m.statuses[name]
	return status, exists
}

// GetAll returns a copy of all current health statuses
func (m *Monitor) GetAll() map[string]Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]Status, len(m.statuses))
	for name, status := range m.statuses {
		result[name] = status
	}
	return result
}

// AggregateHealth returns an aggregated health status for the entire system
func (m *Monitor) AggregateHealth(systemName string) Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	subStatuses := make([]Status, 0, len(m.statuses))
	for _, status := range m.statuses {
		subStatuses = append(subStatuses, status)
	}

	return Aggregate(systemName, subStatuses)
}

// ListComponents returns a list of all component names with a recorded status
func (m *Monitor) ListComponents() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.statuses))
	for name := range m.statuses {
		names = append(names, name)
	}
	return names
}

// Count returns the number of components with a recorded status
func (m *Monitor) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.statuses)
}

// Clear removes all recorded statuses and registrations
func (m *Monitor) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.statuses = make(map[string]Status)
	m.registered = make(map[string]component.Discoverable)
}
