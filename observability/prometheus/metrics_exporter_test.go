package prometheus

import (
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsExporter_RecordMethods(t *testing.T) {
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("fiberpool", reg)
	if err != nil {
		t.Fatalf("NewMetricsExporter failed: %v", err)
	}

	exporter.RecordFiberPanic("pool-a")
	exporter.RecordFiberError("pool-a")

	panicTotal := testutil.ToFloat64(exporter.fiberPanicTotal.WithLabelValues("pool-a"))
	if panicTotal != 1 {
		t.Fatalf("panic total = %v, want 1", panicTotal)
	}

	errorTotal := testutil.ToFloat64(exporter.fiberErrorTotal.WithLabelValues("pool-a"))
	if errorTotal != 1 {
		t.Fatalf("error total = %v, want 1", errorTotal)
	}
}

func TestMetricsExporter_AlreadyRegisteredReuse(t *testing.T) {
	reg := prom.NewRegistry()
	first, err := NewMetricsExporter("fiberpool", reg)
	if err != nil {
		t.Fatalf("first NewMetricsExporter failed: %v", err)
	}
	second, err := NewMetricsExporter("fiberpool", reg)
	if err != nil {
		t.Fatalf("second NewMetricsExporter failed: %v", err)
	}

	first.RecordFiberPanic("pool-a")
	second.RecordFiberPanic("pool-a")

	got := testutil.ToFloat64(first.fiberPanicTotal.WithLabelValues("pool-a"))
	if got != 2 {
		t.Fatalf("shared panic counter = %v, want 2", got)
	}
}

func TestMetricsExporter_NilSafe(t *testing.T) {
	var exporter *MetricsExporter
	exporter.RecordFiberPanic("pool-a")
	exporter.RecordFiberError("pool-a")
}
