package app

import (
	"sync/atomic"
	"time"
)

// Metrics tracks application activity counters. All methods are safe for
// concurrent use.
type Metrics struct {
	// Input handling
	inputCount   atomic.Uint64
	inputDropped atomic.Uint64

	// Session activity
	sessionEvents atomic.Uint64
	stopCount     atomic.Uint64

	// Execution commands issued by the operator
	commandCount atomic.Uint64

	// Start time for uptime calculation
	startTime time.Time
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// RecordInput records a processed input event.
func (m *Metrics) RecordInput() {
	m.inputCount.Add(1)
}

// RecordInputDropped records an input event dropped on a full buffer.
func (m *Metrics) RecordInputDropped() {
	m.inputDropped.Add(1)
}

// RecordSessionEvent records a session event delivered to the loop.
func (m *Metrics) RecordSessionEvent() {
	m.sessionEvents.Add(1)
}

// RecordStop records a fresh stop.
func (m *Metrics) RecordStop() {
	m.stopCount.Add(1)
}

// RecordCommand records an execution command issued by the operator.
func (m *Metrics) RecordCommand() {
	m.commandCount.Add(1)
}

// Snapshot returns a point-in-time view of the counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Uptime:        time.Since(m.startTime),
		InputCount:    m.inputCount.Load(),
		InputDropped:  m.inputDropped.Load(),
		SessionEvents: m.sessionEvents.Load(),
		StopCount:     m.stopCount.Load(),
		CommandCount:  m.commandCount.Load(),
	}
}

// Reset clears all counters and restarts the uptime clock.
func (m *Metrics) Reset() {
	m.inputCount.Store(0)
	m.inputDropped.Store(0)
	m.sessionEvents.Store(0)
	m.stopCount.Store(0)
	m.commandCount.Store(0)
	m.startTime = time.Now()
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	Uptime        time.Duration
	InputCount    uint64
	InputDropped  uint64
	SessionEvents uint64
	StopCount     uint64
	CommandCount  uint64
}

// Metrics returns the application's metrics tracker.
func (app *Application) Metrics() *Metrics {
	return app.metrics
}
