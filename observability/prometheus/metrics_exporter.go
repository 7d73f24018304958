// Package prometheus adapts fiber-pool health into Prometheus
// collectors: a small counter exporter for panic/error events plus a
// SnapshotPoller that periodically reads Pool.Stats() into gauges.
package prometheus

import (
	"errors"
	"fmt"

	prom "github.com/prometheus/client_golang/prometheus"
)

// MetricsExporter records fiber-level events as Prometheus counters.
type MetricsExporter struct {
	fiberPanicTotal *prom.CounterVec
	fiberErrorTotal *prom.CounterVec
}

// NewMetricsExporter creates and registers Prometheus collectors.
func NewMetricsExporter(namespace string, reg prom.Registerer) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "fiberpool"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}

	panicVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "fiber_panic_total",
		Help:      "Total number of fiber bodies that panicked.",
	}, []string{"pool"})
	errorVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "fiber_error_total",
		Help:      "Total number of fiber bodies that returned an error.",
	}, []string{"pool"})

	var err error
	if panicVec, err = registerCollector(reg, panicVec); err != nil {
		return nil, err
	}
	if errorVec, err = registerCollector(reg, errorVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{fiberPanicTotal: panicVec, fiberErrorTotal: errorVec}, nil
}

// RecordFiberPanic records a fiber body panic for pool.
func (m *MetricsExporter) RecordFiberPanic(pool string) {
	if m == nil {
		return
	}
	m.fiberPanicTotal.WithLabelValues(normalizeLabel(pool, "default")).Inc()
}

// RecordFiberError records a fiber body error return for pool.
func (m *MetricsExporter) RecordFiberError(pool string) {
	if m == nil {
		return
	}
	m.fiberErrorTotal.WithLabelValues(normalizeLabel(pool, "default")).Inc()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
