package health

import (
	"context"
	"sync"
	"time"

	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
)

// Probe checks one dependency; a nil error means healthy
type Probe func(ctx context.Context) error

// Monitor runs a probe on a fixed interval
type Monitor struct {
	probe    Probe
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
	clock    clockz.Clock

	mu      sync.RWMutex
	running bool
	status  Status
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Status represents the outcome of the latest probe
type Status struct {
	Healthy             bool
	LastError           string
	ConsecutiveFailures int
	Checks              int
	Timestamp           time.Time
}

// Option configures a Monitor
type Option func(*Monitor)

// WithClock replaces the wall clock driving the probe schedule
func WithClock(clock clockz.Clock) Option {
	return func(m *Monitor) {
		m.clock = clock
	}
}

// NewMonitor creates a new health monitor. A zero timeout falls back to the interval.
func NewMonitor(probe Probe, interval, timeout time.Duration, logger *zap.Logger, opts ...Option) *Monitor {
	if timeout <= 0 {
		timeout = interval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Monitor{
		probe:    probe,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
		clock:    clockz.RealClock,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.status = Status{Healthy: true, Timestamp: m.clock.Now()}

	return m
}

// Start starts the health monitor
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	// Created before returning so the first tick is scheduled from Start
	ticker := m.clock.NewTicker(m.interval)
	go m.run(ticker)
}

// Stop stops the health monitor and waits for an in-flight probe
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.mu.Unlock()

	close(m.stopCh)
	<-m.doneCh
}

// run is the main health monitoring loop
func (m *Monitor) run(ticker clockz.Ticker) {
	defer close(m.doneCh)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C():
			m.checkHealth()
		}
	}
}

// checkHealth runs the probe once and records the outcome
func (m *Monitor) checkHealth() {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	err := m.probe(ctx)

	m.mu.Lock()
	m.status.Checks++
	m.status.Timestamp = m.clock.Now()
	if err != nil {
		m.status.Healthy = false
		m.status.LastError = err.Error()
		m.status.ConsecutiveFailures++
	} else {
		m.status.Healthy = true
		m.status.LastError = ""
		m.status.ConsecutiveFailures = 0
	}
	status := m.status
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn("health check failed",
			zap.Error(err),
			zap.Int("consecutive_failures", status.ConsecutiveFailures))
		return
	}

	m.logger.Debug("health check passed", zap.Int("checks", status.Checks))
}

// GetStatus returns the current health status
func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// IsHealthy returns true if the latest probe succeeded
func (m *Monitor) IsHealthy() bool {
	return m.GetStatus().Healthy
}
