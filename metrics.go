package lexgo

import "sync/atomic"

// MetricsCollector receives operation counts from a vocabulary.
// Implementations must be cheap; collection runs inline with lookups.
type MetricsCollector interface {
	RecordLookup(hit bool)
	RecordCreate(oov bool)
	RecordVectorsLoaded(count, dimension int)
	RecordExport(records int)
	RecordImport(records int)
}

// NoopMetricsCollector discards all metrics.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordLookup(bool)          {}
func (NoopMetricsCollector) RecordCreate(bool)          {}
func (NoopMetricsCollector) RecordVectorsLoaded(_, _ int) {}
func (NoopMetricsCollector) RecordExport(int)           {}
func (NoopMetricsCollector) RecordImport(int)           {}

// MetricsStats is a snapshot of collected counters.
type MetricsStats struct {
	Lookups       uint64
	Hits          uint64
	Creates       uint64
	OOVCreates    uint64
	VectorsLoaded uint64
	Exported      uint64
	Imported      uint64
}

// BasicMetricsCollector counts operations with atomics.
type BasicMetricsCollector struct {
	lookups       atomic.Uint64
	hits          atomic.Uint64
	creates       atomic.Uint64
	oovCreates    atomic.Uint64
	vectorsLoaded atomic.Uint64
	exported      atomic.Uint64
	imported      atomic.Uint64
}

func (m *BasicMetricsCollector) RecordLookup(hit bool) {
	m.lookups.Add(1)
	if hit {
		m.hits.Add(1)
	}
}

func (m *BasicMetricsCollector) RecordCreate(oov bool) {
	m.creates.Add(1)
	if oov {
		m.oovCreates.Add(1)
	}
}

func (m *BasicMetricsCollector) RecordVectorsLoaded(count, _ int) {
	m.vectorsLoaded.Add(uint64(count))
}

func (m *BasicMetricsCollector) RecordExport(records int) {
	m.exported.Add(uint64(records))
}

func (m *BasicMetricsCollector) RecordImport(records int) {
	m.imported.Add(uint64(records))
}

// GetStats returns a snapshot of the counters.
func (m *BasicMetricsCollector) GetStats() MetricsStats {
	return MetricsStats{
		Lookups:       m.lookups.Load(),
		Hits:          m.hits.Load(),
		Creates:       m.creates.Load(),
		OOVCreates:    m.oovCreates.Load(),
		VectorsLoaded: m.vectorsLoaded.Load(),
		Exported:      m.exported.Load(),
		Imported:      m.imported.Load(),
	}
}
