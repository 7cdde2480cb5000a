package observability

import (
	"sync"
	"time"
)

// Metrics collects counters for crew runs, tool calls and model usage.
// Label keys in use: "component" (dispatch, tool, crew, http, mcp),
// "name" (mode, tool, task or route), "status".
type Metrics interface {
	IncrementRequests(labels map[string]string)
	RecordLatency(duration time.Duration, labels map[string]string)
	IncrementTokensUsed(tokens int, labels map[string]string)
	RecordError(errorType string, labels map[string]string)
}

// NoOpMetrics discards everything.
type NoOpMetrics struct{}

func (NoOpMetrics) IncrementRequests(map[string]string)            {}
func (NoOpMetrics) RecordLatency(time.Duration, map[string]string) {}
func (NoOpMetrics) IncrementTokensUsed(int, map[string]string)     {}
func (NoOpMetrics) RecordError(string, map[string]string)          {}

// Snapshot is a point-in-time copy of CountingMetrics.
type Snapshot struct {
	Requests     int64            `json:"requests"`
	TotalLatency time.Duration    `json:"total_latency"`
	TokensUsed   int64            `json:"tokens_used"`
	Errors       map[string]int64 `json:"errors"`
}

// CountingMetrics keeps unlabelled totals in memory. It backs the
// /health summary when no exporter is configured.
type CountingMetrics struct {
	mu   sync.Mutex
	snap Snapshot
}

func NewCountingMetrics() *CountingMetrics {
	return &CountingMetrics{snap: Snapshot{Errors: map[string]int64{}}}
}

func (m *CountingMetrics) IncrementRequests(map[string]string) {
	m.mu.Lock()
	m.snap.Requests++
	m.mu.Unlock()
}

func (m *CountingMetrics) RecordLatency(d time.Duration, _ map[string]string) {
	m.mu.Lock()
	m.snap.TotalLatency += d
	m.mu.Unlock()
}

func (m *CountingMetrics) IncrementTokensUsed(tokens int, _ map[string]string) {
	m.mu.Lock()
	m.snap.TokensUsed += int64(tokens)
	m.mu.Unlock()
}

func (m *CountingMetrics) RecordError(errorType string, _ map[string]string) {
	m.mu.Lock()
	m.snap.Errors[errorType]++
	m.mu.Unlock()
}

// Snapshot returns a copy of the current totals.
func (m *CountingMetrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.snap
	out.Errors = make(map[string]int64, len(m.snap.Errors))
	for k, v := range m.snap.Errors {
		out.Errors[k] = v
	}
	return out
}

var (
	_ Metrics = NoOpMetrics{}
	_ Metrics = (*CountingMetrics)(nil)
)
