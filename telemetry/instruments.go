package telemetry

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/metric"
)

// instruments caches metric instruments by name. Names ending in
// "_ms" or "_seconds" are recorded as histograms, everything else as a
// float counter.
type instruments struct {
	meter      metric.Meter
	mu         sync.RWMutex
	counters   map[string]metric.Float64Counter
	histograms map[string]metric.Float64Histogram
}

func newInstruments(meter metric.Meter) *instruments {
	return &instruments{
		meter:      meter,
		counters:   make(map[string]metric.Float64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

func isHistogram(name string) bool {
	return strings.HasSuffix(name, "_ms") || strings.HasSuffix(name, "_seconds")
}

func (m *instruments) record(ctx context.Context, name string, value float64, opts metric.MeasurementOption) error {
	if isHistogram(name) {
		h, err := m.histogram(name)
		if err != nil {
			return err
		}
		h.Record(ctx, value, opts)
		return nil
	}
	c, err := m.counter(name)
	if err != nil {
		return err
	}
	c.Add(ctx, value, opts)
	return nil
}

func (m *instruments) counter(name string) (metric.Float64Counter, error) {
	m.mu.RLock()
	c, ok := m.counters[name]
	m.mu.RUnlock()
	if ok {
		return c, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok = m.counters[name]; ok {
		return c, nil
	}
	c, err := m.meter.Float64Counter(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	m.counters[name] = c
	return c, nil
}

func (m *instruments) histogram(name string) (metric.Float64Histogram, error) {
	m.mu.RLock()
	h, ok := m.histograms[name]
	m.mu.RUnlock()
	if ok {
		return h, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok = m.histograms[name]; ok {
		return h, nil
	}
	h, err := m.meter.Float64Histogram(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram %s: %w", name, err)
	}
	m.histograms[name] = h
	return h, nil
}
