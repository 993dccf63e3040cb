package core

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestExpvarRecorderAggregates(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	ctx := context.Background()

	rec.Observe(ctx, "ingest_csv", true, 20*time.Millisecond)
	rec.Observe(ctx, "ingest_csv", true, 30*time.Millisecond)
	rec.Observe(ctx, "ingest_csv", false, 5*time.Millisecond)
	rec.Observe(ctx, "", true, time.Second) // ignored

	snap := rec.Snapshot()
	if snap.Results["ingest_csv"]["success"] != 2 || snap.Results["ingest_csv"]["error"] != 1 {
		t.Fatalf("unexpected results: %+v", snap.Results)
	}
	if snap.DurationsMS["ingest_csv"] != 55 {
		t.Fatalf("unexpected duration total: %v", snap.DurationsMS)
	}
}

func TestPrometheusRecorderRegistersAndObserves(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}

	rec.Observe(context.Background(), "run_differential", true, 12*time.Millisecond)
	rec.Observe(context.Background(), "run_differential", false, 3*time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := map[string]bool{}
	for _, fam := range families {
		found[fam.GetName()] = true
	}
	if !found["cytocore_operations_total"] || !found["cytocore_operation_duration_seconds"] {
		t.Fatalf("collectors missing from registry: %v", found)
	}

	// double registration must fail loudly
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}
