package health

import (
	"context"
	"sync"
	"time"
)

// Check probes one dependency. A failing Critical check makes the whole
// system critical; any other failure only degrades it.
type Check struct {
	Name     string
	Critical bool
	Probe    func(ctx context.Context) error
}

// Monitor aggregates health status from the configured checks.
type Monitor struct {
	checks     []Check
	interval   time.Duration
	now        func() time.Time
	lastCheck  time.Time
	lastReport *HealthReport
	mu         sync.Mutex
}

// NewMonitor creates a new health monitor.
func NewMonitor(checks ...Check) *Monitor {
	return &Monitor{
		checks:   checks,
		interval: 10 * time.Second,
		now:      time.Now,
	}
}

// CheckHealth runs every check, reusing the previous report if it is
// younger than the check interval.
func (m *Monitor) CheckHealth(ctx context.Context) HealthReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Rate limit checks to avoid hammering dependencies
	if m.lastReport != nil && m.now().Sub(m.lastCheck) < m.interval {
		return *m.lastReport
	}

	report := HealthReport{
		SystemStatus: StatusHealthy,
		Components:   make(map[string]ComponentHealth, len(m.checks)),
	}

	for _, check := range m.checks {
		start := m.now()
		checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := check.Probe(checkCtx)
		cancel()

		health := ComponentHealth{
			Name:      check.Name,
			Status:    StatusHealthy,
			LatencyMs: m.now().Sub(start).Milliseconds(),
		}
		if err != nil {
			health.Error = err.Error()
			health.Status = StatusDegraded
			if check.Critical {
				health.Status = StatusCritical
			}
		}

		// Worst case wins
		switch {
		case health.Status == StatusCritical:
			report.SystemStatus = StatusCritical
		case health.Status == StatusDegraded && report.SystemStatus == StatusHealthy:
			report.SystemStatus = StatusDegraded
		}

		report.Components[check.Name] = health
	}

	m.lastCheck = m.now()
	m.lastReport = &report
	return report
}
