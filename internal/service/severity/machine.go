// Package severity derives the safety banner from the latest merged analysis.
package severity

import (
	"sync"

	"go.uber.org/zap"

	"github.com/zhouzirui/mindpeers/client/internal/model/analysis"
	"github.com/zhouzirui/mindpeers/client/pkg/notify"
)

// Machine holds the last known severity. Every observed analysis overrides
// it completely; there is no hysteresis or worst-case latching.
type Machine struct {
	mu      sync.RWMutex
	current analysis.Severity
	hub     notify.Hub
	log     *zap.Logger
}

// NewMachine starts in SAFE.
func NewMachine(logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{current: analysis.SeveritySafe, log: logger.Named("severity")}
}

// Observe applies a successfully merged analysis. Invalid severities are
// ignored. Subscribers are notified even when the state is unchanged.
func (m *Machine) Observe(a analysis.Analysis) {
	if !a.Severity.Valid() {
		m.log.Warn("ignoring invalid severity", zap.Stringer("severity", a.Severity))
		return
	}

	m.mu.Lock()
	previous := m.current
	m.current = a.Severity
	m.mu.Unlock()

	if previous != a.Severity {
		m.log.Info("severity changed",
			zap.Stringer("from", previous),
			zap.Stringer("to", a.Severity),
			zap.String("concern", a.Concern.Label))
	}
	m.hub.Notify()
}

// Current returns the last known severity.
func (m *Machine) Current() analysis.Severity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Banner returns the content for the current severity.
func (m *Machine) Banner() Banner {
	return BannerFor(m.Current())
}

// Reset returns to SAFE, used on session teardown.
func (m *Machine) Reset() {
	m.mu.Lock()
	m.current = analysis.SeveritySafe
	m.mu.Unlock()
	m.hub.Notify()
}

// Subscribe registers fn for change notifications.
func (m *Machine) Subscribe(fn func()) func() {
	return m.hub.Subscribe(fn)
}
