package actuator

import (
	"sync/atomic"
	"time"
)

// Metrics tracks actuator runtime performance counters.
type Metrics struct {
	// Launch counts
	LaunchCount    atomic.Int64
	LaunchFailures atomic.Int64
	ActiveCount    atomic.Int64

	// Run counts
	ExecuteCount    atomic.Int64
	ExecuteFailures atomic.Int64
	QuestionsAsked  atomic.Int64

	// Step metrics
	StepsExecuted   atomic.Int64
	StepLatencySum  atomic.Int64 // nanoseconds sum for averaging
	StepLatencyObs  atomic.Int64
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordLaunch increments launch counters.
func (m *Metrics) RecordLaunch(err error) {
	if m == nil {
		return
	}
	m.LaunchCount.Add(1)
	if err != nil {
		m.LaunchFailures.Add(1)
		return
	}
	m.ActiveCount.Add(1)
}

// RecordClose decrements the active actuator gauge.
func (m *Metrics) RecordClose() {
	if m == nil {
		return
	}
	m.ActiveCount.Add(-1)
}

// RecordExecute increments run counters.
func (m *Metrics) RecordExecute(err error) {
	if m == nil {
		return
	}
	m.ExecuteCount.Add(1)
	if err != nil {
		m.ExecuteFailures.Add(1)
	}
}

// RecordQuestion increments the human-input request counter.
func (m *Metrics) RecordQuestion() {
	if m == nil {
		return
	}
	m.QuestionsAsked.Add(1)
}

// RecordStep records one reasoning step and its latency.
func (m *Metrics) RecordStep(latency time.Duration) {
	if m == nil {
		return
	}
	m.StepsExecuted.Add(1)
	m.StepLatencySum.Add(int64(latency))
	m.StepLatencyObs.Add(1)
}

// AvgStepLatency returns the mean step latency observed so far.
func (m *Metrics) AvgStepLatency() time.Duration {
	if m == nil {
		return 0
	}
	n := m.StepLatencyObs.Load()
	if n == 0 {
		return 0
	}
	return time.Duration(m.StepLatencySum.Load() / n)
}
