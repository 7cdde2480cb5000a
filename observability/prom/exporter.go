// Package prom renders observability.Metrics in the Prometheus text format
// for the bridge's /metrics endpoint.
package prom

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/KamdynS/agentcrew/observability"
)

const namespace = "agentcrew"

type series map[string]float64

// Exporter aggregates counters per label set.
type Exporter struct {
	mu       sync.Mutex
	requests series
	latency  series
	latCount series
	tokens   series
	errors   series
}

func New() *Exporter {
	return &Exporter{
		requests: series{},
		latency:  series{},
		latCount: series{},
		tokens:   series{},
		errors:   series{},
	}
}

func (e *Exporter) IncrementRequests(labels map[string]string) {
	e.mu.Lock()
	e.requests[labelString(labels)]++
	e.mu.Unlock()
}

func (e *Exporter) RecordLatency(d time.Duration, labels map[string]string) {
	k := labelString(labels)
	e.mu.Lock()
	e.latency[k] += d.Seconds()
	e.latCount[k]++
	e.mu.Unlock()
}

func (e *Exporter) IncrementTokensUsed(tokens int, labels map[string]string) {
	e.mu.Lock()
	e.tokens[labelString(labels)] += float64(tokens)
	e.mu.Unlock()
}

func (e *Exporter) RecordError(errorType string, labels map[string]string) {
	withType := make(map[string]string, len(labels)+1)
	for k, v := range labels {
		withType[k] = v
	}
	withType["type"] = errorType
	e.mu.Lock()
	e.errors[labelString(withType)]++
	e.mu.Unlock()
}

// WriteTo renders every series, sorted for stable output.
func (e *Exporter) WriteTo(w io.Writer) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var b strings.Builder
	writeFamily(&b, "requests_total", "counter", "Handled requests.", e.requests)
	writeFamily(&b, "latency_seconds_sum", "counter", "Total handling time.", e.latency)
	writeFamily(&b, "latency_seconds_count", "counter", "Observations in latency_seconds_sum.", e.latCount)
	writeFamily(&b, "tokens_total", "counter", "Model tokens consumed.", e.tokens)
	writeFamily(&b, "errors_total", "counter", "Failures by type.", e.errors)
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// Handler serves the exporter at /metrics.
func Handler(e *Exporter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = e.WriteTo(w)
	})
}

func writeFamily(b *strings.Builder, name, kind, help string, s series) {
	if len(s) == 0 {
		return
	}
	full := namespace + "_" + name
	fmt.Fprintf(b, "# HELP %s %s\n# TYPE %s %s\n", full, help, full, kind)
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "%s%s %s\n", full, k, strconv.FormatFloat(s[k], 'f', -1, 64))
	}
}

// labelString renders labels as {a="x",b="y"} with sorted keys.
func labelString(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + strconv.Quote(labels[k])
	}
	return "{" + strings.Join(parts, ",") + "}"
}

var _ observability.Metrics = (*Exporter)(nil)
