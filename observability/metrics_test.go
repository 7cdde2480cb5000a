package observability

import (
	"sync"
	"testing"
	"time"
)

func TestNoOpMetrics(t *testing.T) {
	var m Metrics = NoOpMetrics{}
	m.IncrementRequests(nil)
	m.RecordLatency(time.Millisecond, nil)
	m.IncrementTokensUsed(10, nil)
	m.RecordError("x", nil)
}

func TestCountingMetricsConcurrent(t *testing.T) {
	m := NewCountingMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.IncrementRequests(nil)
			m.RecordLatency(time.Millisecond, nil)
			m.IncrementTokensUsed(5, nil)
			m.RecordError("boom", nil)
		}()
	}
	wg.Wait()
	s := m.Snapshot()
	if s.Requests != 10 || s.TokensUsed != 50 || s.Errors["boom"] != 10 {
		t.Fatalf("unexpected snapshot: %+v", s)
	}
	if s.TotalLatency != 10*time.Millisecond {
		t.Fatalf("latency %v", s.TotalLatency)
	}
	s.Errors["boom"] = 0
	if m.Snapshot().Errors["boom"] != 10 {
		t.Fatal("snapshot aliases internal map")
	}
}
