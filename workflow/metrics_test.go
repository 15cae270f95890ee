package workflow

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestMetrics_RecordBlockLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordBlockLatency("exec-1", "agent", 150*time.Millisecond, "success")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if !hasMetricFamily(families, "workflow_block_latency_ms") {
		t.Fatalf("expected workflow_block_latency_ms to be registered and recorded")
	}
}

func TestMetrics_GaugesAndCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.SetInflightBlocks(3)
	m.SetLayerDepth(2)
	m.IncrementPauses("exec-1", "wait_block")
	m.IncrementCancellations("exec-1")
	m.IncrementRetries("exec-1", "block-a", "transient")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	for _, name := range []string{
		"workflow_inflight_blocks",
		"workflow_layer_depth",
		"workflow_pauses_total",
		"workflow_cancellations_total",
		"workflow_retries_total",
	} {
		if !hasMetricFamily(families, name) {
			t.Errorf("expected metric family %s to be present", name)
		}
	}
}

func TestMetrics_DisableStopsRecording(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.Disable()

	m.SetInflightBlocks(5)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	for _, f := range families {
		if f.GetName() != "workflow_inflight_blocks" {
			continue
		}
		for _, metric := range f.GetMetric() {
			if metric.GetGauge().GetValue() != 0 {
				t.Fatalf("expected disabled Metrics not to record, got %v", metric.GetGauge().GetValue())
			}
		}
	}

	m.Enable()
	m.SetInflightBlocks(5)
	families, err = reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() != "workflow_inflight_blocks" {
			continue
		}
		for _, metric := range f.GetMetric() {
			if metric.GetGauge().GetValue() == 5 {
				found = true
			}
		}
	}
	if !found {
		t.Fatalf("expected re-enabled Metrics to record again")
	}
}

func hasMetricFamily(families []*dto.MetricFamily, name string) bool {
	for _, f := range families {
		if f.GetName() == name {
			return true
		}
	}
	return false
}
