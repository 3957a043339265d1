package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Check probes one dependency. Required checks decide overall health;
// optional ones are only reported.
type Check struct {
	Name     string
	Required bool
	Ping     func(ctx context.Context) error
}

// Monitor refreshes dependency health on a cron schedule and serves the last
// observed status.
type Monitor struct {
	checks  []Check
	timeout time.Duration
	cron    *cron.Cron
	logger  *zap.Logger

	mu     sync.RWMutex
	status Status
}

// New builds a monitor refreshing on schedule, a standard cron spec or an
// "@every <duration>" descriptor.
func New(schedule string, logger *zap.Logger, checks ...Check) (*Monitor, error) {
	if schedule == "" {
		schedule = "@every 10s"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Monitor{
		checks:  checks,
		timeout: 3 * time.Second,
		cron:    cron.New(),
		logger:  logger,
	}
	if _, err := m.cron.AddFunc(schedule, m.Refresh); err != nil {
		return nil, err
	}
	return m, nil
}

// Start runs a first refresh synchronously and then schedules the rest.
func (m *Monitor) Start() {
	m.Refresh()
	m.cron.Start()
}

// Stop halts the schedule and waits for a running refresh to finish or ctx to expire.
func (m *Monitor) Stop(ctx context.Context) error {
	done := m.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Monitor) IsHealthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.Healthy
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.clone()
}

// Refresh probes every dependency once.
func (m *Monitor) Refresh() {
	status := Status{
		Healthy:    true,
		Components: make(map[string]Component, len(m.checks)),
		LastCheck:  time.Now().UTC(),
	}
	for _, check := range m.checks {
		component := m.probe(check)
		status.Components[check.Name] = component
		if check.Required && !component.Online {
			status.Healthy = false
		}
	}

	m.mu.Lock()
	previous := m.status
	m.status = status
	m.mu.Unlock()

	if !previous.LastCheck.IsZero() && previous.Healthy != status.Healthy {
		m.logger.Warn("health changed", zap.Bool("healthy", status.Healthy))
	}
}

func (m *Monitor) probe(check Check) Component {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	start := time.Now()
	err := check.Ping(ctx)
	component := Component{
		Online:   err == nil,
		Required: check.Required,
		Latency:  time.Since(start).String(),
	}
	if err != nil {
		component.Error = err.Error()
		m.logger.Debug("health check failed", zap.String("component", check.Name), zap.Error(err))
	}
	return component
}
