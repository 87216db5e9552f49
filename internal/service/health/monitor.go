// Package health tracks whether the analysis service is reachable.
package health

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/zhouzirui/mindpeers/client/internal/service/api"
	"github.com/zhouzirui/mindpeers/client/pkg/notify"
)

// Status is the connection state shown in the header.
type Status string

const (
	StatusChecking     Status = "Checking..."
	StatusConnected    Status = "Connected"
	StatusDisconnected Status = "Disconnected"
)

// Pinger probes the service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor holds the outcome of the most recent probe.
type Monitor struct {
	pinger Pinger
	log    *zap.Logger
	hub    notify.Hub

	mu      sync.RWMutex
	status  Status
	lastErr error
}

func NewMonitor(pinger Pinger, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{pinger: pinger, log: logger.Named("health"), status: StatusChecking}
}

// Check pings the service once and records the result.
func (m *Monitor) Check(ctx context.Context) Status {
	m.set(StatusChecking, nil)

	err := m.pinger.Ping(ctx)
	if err != nil {
		m.log.Warn("service unreachable", zap.String("kind", api.Kind(err)), zap.Error(err))
		m.set(StatusDisconnected, err)
		return StatusDisconnected
	}

	m.set(StatusConnected, nil)
	return StatusConnected
}

// Status returns the last recorded status and, when disconnected, why.
func (m *Monitor) Status() (Status, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status, m.lastErr
}

// Subscribe registers fn for change notifications.
func (m *Monitor) Subscribe(fn func()) func() {
	return m.hub.Subscribe(fn)
}

func (m *Monitor) set(status Status, err error) {
	m.mu.Lock()
	changed := m.status != status
	m.status = status
	m.lastErr = err
	m.mu.Unlock()

	if changed {
		m.hub.Notify()
	}
}
