package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestEngineMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewEngineMetrics(reg)

	metrics.ObserveOp("create", 250*time.Millisecond)
	metrics.IncReserve("ok")
	metrics.IncReserve("rejected")
	metrics.IncInsufficientStock("OBAT-001")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "inventory_reserve_attempts", "outcome", "ok"); err != nil {
		t.Fatalf("fetch reserve ok: %v", err)
	} else if got != 1 {
		t.Fatalf("expected ok=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "inventory_reserve_attempts", "outcome", "rejected"); err != nil {
		t.Fatalf("fetch reserve rejected: %v", err)
	} else if got != 1 {
		t.Fatalf("expected rejected=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "inventory_insufficient_stock", "sku", "OBAT-001"); err != nil {
		t.Fatalf("fetch insufficient stock: %v", err)
	} else if got != 1 {
		t.Fatalf("expected insufficient=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "transaction_op_duration_seconds", "op", "create"); err != nil {
		t.Fatalf("fetch op duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestEngineMetricsNilSafe(t *testing.T) {
	var metrics *EngineMetrics
	metrics.ObserveOp("create", time.Second)
	metrics.IncReserve("ok")
	metrics.IncInsufficientStock("OBAT-001")

	empty := NewEngineMetrics(nil)
	empty.ObserveOp("create", time.Second)
	empty.IncReserve("ok")
	empty.IncInsufficientStock("OBAT-001")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
