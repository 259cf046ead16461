package core

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestExpvarMetricsAggregates(t *testing.T) {
	m := NewExpvarMetrics("")
	ctx := context.Background()
	m.Observe(ctx, "remote_save", true, 40*time.Millisecond)
	m.Observe(ctx, "remote_save", true, 60*time.Millisecond)
	m.Observe(ctx, "remote_save", false, 10*time.Millisecond)
	m.Observe(ctx, "", true, time.Second) // ignored

	snap := m.Snapshot()
	if got := snap.Counts["remote_save/success"]; got != 2 {
		t.Fatalf("success count = %d", got)
	}
	if got := snap.Counts["remote_save/error"]; got != 1 {
		t.Fatalf("error count = %d", got)
	}
	if got := snap.DurationsMS["remote_save"]; got < 109 || got > 111 {
		t.Fatalf("durations = %v", got)
	}
}

func TestExpvarMetricsUniqueNames(t *testing.T) {
	a := NewExpvarMetrics("")
	b := NewExpvarMetrics("")
	if a.Name() == b.Name() {
		t.Fatalf("generated names must be unique: %s", a.Name())
	}
}

func TestPrometheusMetricsRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewPrometheusMetrics(reg)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	ctx := context.Background()
	m.Observe(ctx, "remote_save", true, 20*time.Millisecond)
	m.Observe(ctx, "remote_save", false, 20*time.Millisecond)
	m.Observe(ctx, "remote_load", true, 5*time.Millisecond)

	if got := testutil.ToFloat64(m.outcomes.WithLabelValues("remote_save", "success")); got != 1 {
		t.Fatalf("remote_save success = %v", got)
	}
	if got := testutil.ToFloat64(m.outcomes.WithLabelValues("remote_save", "error")); got != 1 {
		t.Fatalf("remote_save error = %v", got)
	}
	if got := testutil.ToFloat64(m.outcomes.WithLabelValues("remote_load", "success")); got != 1 {
		t.Fatalf("remote_load success = %v", got)
	}
}

func TestPrometheusMetricsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPrometheusMetrics(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := NewPrometheusMetrics(reg); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}
