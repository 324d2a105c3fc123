package carve

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for a carving run. They live on a
// private registry so one process can host several carvers.
type Metrics struct {
	Registry *prometheus.Registry

	buffersRead    prometheus.Counter
	bytesRead      prometheus.Counter
	windowsScanned prometheus.Counter
	windowsSkipped prometheus.Counter
	decodedBytes   prometheus.Counter
	pagesEmitted   prometheus.Counter
	pagesDiscarded prometheus.Counter
	dedupeHits     prometheus.Counter
}

// NewMetrics creates and registers all carving metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		buffersRead: factory.NewCounter(prometheus.CounterOpts{
			Name: "winmem_buffers_read_total",
			Help: "Total number of input buffers read",
		}),
		bytesRead: factory.NewCounter(prometheus.CounterOpts{
			Name: "winmem_bytes_read_total",
			Help: "Total number of input bytes read",
		}),
		windowsScanned: factory.NewCounter(prometheus.CounterOpts{
			Name: "winmem_windows_scanned_total",
			Help: "Total number of candidate windows submitted for decoding",
		}),
		windowsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "winmem_windows_skipped_total",
			Help: "Total number of windows skipped by the zero-prefix heuristic",
		}),
		decodedBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "winmem_decoded_bytes_total",
			Help: "Total number of decompressed bytes produced, before normalization",
		}),
		pagesEmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "winmem_pages_emitted_total",
			Help: "Total number of recovered pages written to the output",
		}),
		pagesDiscarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "winmem_pages_discarded_total",
			Help: "Total number of decode results below the minimum page size",
		}),
		dedupeHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "winmem_dedupe_hits_total",
			Help: "Total number of windows served from the dedupe cache",
		}),
	}
}

// The recorders below are nil-safe so the pipeline can run without metrics.

func (m *Metrics) recordBuffer(bytes int) {
	if m == nil {
		return
	}
	m.buffersRead.Inc()
	m.bytesRead.Add(float64(bytes))
}

func (m *Metrics) recordScan(scanned, skipped int) {
	if m == nil {
		return
	}
	m.windowsScanned.Add(float64(scanned))
	m.windowsSkipped.Add(float64(skipped))
}

func (m *Metrics) recordDecode(bytes int) {
	if m == nil {
		return
	}
	m.decodedBytes.Add(float64(bytes))
}

func (m *Metrics) recordPage(emitted bool) {
	if m == nil {
		return
	}
	if emitted {
		m.pagesEmitted.Inc()
	} else {
		m.pagesDiscarded.Inc()
	}
}

func (m *Metrics) recordDedupeHit() {
	if m == nil {
		return
	}
	m.dedupeHits.Inc()
}
