package core

import (
	"context"
	"expvar"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// MetricsRecorder receives the outcome of every remote persistence
// operation driven by the sync scheduler.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

var expvarSeq uint64

// ExpvarMetrics publishes cumulative operation timings and outcome counters
// via expvar, for deployments that want process-local metrics without an
// external scrape target.
type ExpvarMetrics struct {
	name    string
	mu      sync.Mutex
	totalMS map[string]float64
	counts  map[string]int64
}

// MetricsSnapshot is the read-only expvar representation.
type MetricsSnapshot struct {
	DurationsMS map[string]float64 `json:"durations_ms_total"`
	Counts      map[string]int64   `json:"outcomes_total"`
	RecordedAt  time.Time          `json:"recorded_at"`
}

// NewExpvarMetrics constructs a recorder published under name; an empty
// name gets a generated unique one.
func NewExpvarMetrics(name string) *ExpvarMetrics {
	if name == "" {
		name = fmt.Sprintf("plancore_sync_metrics_%d", atomic.AddUint64(&expvarSeq, 1))
	}
	m := &ExpvarMetrics{
		name:    name,
		totalMS: make(map[string]float64),
		counts:  make(map[string]int64),
	}
	expvar.Publish(name, expvar.Func(func() any { return m.Snapshot() }))
	return m
}

// Name returns the expvar export name.
func (m *ExpvarMetrics) Name() string { return m.name }

// Observe implements MetricsRecorder. Counters are keyed operation/status.
func (m *ExpvarMetrics) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	m.mu.Lock()
	m.totalMS[operation] += float64(duration) / float64(time.Millisecond)
	m.counts[operation+"/"+status]++
	m.mu.Unlock()
}

// Snapshot returns a copy of the aggregated metrics.
func (m *ExpvarMetrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	durations := make(map[string]float64, len(m.totalMS))
	for k, v := range m.totalMS {
		durations[k] = v
	}
	counts := make(map[string]int64, len(m.counts))
	for k, v := range m.counts {
		counts[k] = v
	}
	return MetricsSnapshot{DurationsMS: durations, Counts: counts, RecordedAt: time.Now().UTC()}
}
