// Package history records every dispatched crew run so past results can be
// listed later.
package history

import (
	"context"
	"sync"
	"time"
)

// Run is one handled request.
type Run struct {
	ID        string        `json:"id"`
	Mode      string        `json:"mode"`
	Input     string        `json:"input"`
	Output    string        `json:"output"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
}

// Recorder persists runs.
type Recorder interface {
	Record(ctx context.Context, run Run) error
	// Recent returns up to limit runs, newest first.
	Recent(ctx context.Context, limit int) ([]Run, error)
}

// DefaultLimit is used by Recent when limit <= 0.
const DefaultLimit = 20

// MemoryCapacity is how many runs a MemoryRecorder keeps by default.
const MemoryCapacity = 100

// MemoryRecorder keeps the most recent runs in process memory, dropping
// the oldest once Max is reached.
type MemoryRecorder struct {
	Max int

	mu   sync.RWMutex
	runs []Run
}

func NewMemoryRecorder() *MemoryRecorder { return &MemoryRecorder{Max: MemoryCapacity} }

func (m *MemoryRecorder) Record(ctx context.Context, run Run) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	m.mu.Lock()
	m.runs = append(m.runs, run)
	if m.Max > 0 && len(m.runs) > m.Max {
		m.runs = append(m.runs[:0:0], m.runs[len(m.runs)-m.Max:]...)
	}
	m.mu.Unlock()
	return nil
}

func (m *MemoryRecorder) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Run, 0, min(limit, len(m.runs)))
	for i := len(m.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.runs[i])
	}
	return out, nil
}

var _ Recorder = (*MemoryRecorder)(nil)
