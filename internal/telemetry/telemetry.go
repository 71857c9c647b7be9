// Package telemetry wires the ambient logging and metrics stack around
// one FieldsData segment: a zap child logger carrying a segment id, and
// a private Prometheus registry so multiple segments under
// construction never collide on metric identity (SPEC_FULL.md,
// "AMBIENT STACK"). Grounded on the zap usage throughout
// _examples/influxdata-influxdb and the client_golang usage in
// _examples/Adithya-Monish-Kumar-K-*.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Metrics holds the Prometheus collectors one FieldsData segment
// reports against. Each is registered on a private Registry, never the
// global default one.
type Metrics struct {
	registry *prometheus.Registry

	BlocksAllocated  prometheus.Counter
	FlushDuration    prometheus.Histogram
	FieldsFlushed    prometheus.Counter
	InvertRejected   *prometheus.CounterVec
	PoolExhaustedTot prometheus.Counter
}

// NewMetrics constructs a fresh private registry and collector set,
// labeled with segmentID so scraped output (if the caller chooses to
// expose it) can be told apart across concurrently-building segments.
func NewMetrics(segmentID string) *Metrics {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"segment_id": segmentID}

	m := &Metrics{
		registry: reg,
		BlocksAllocated: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "iresearch_bytepool_blocks_allocated_total",
			Help:        "Number of byte-pool blocks allocated by this segment.",
			ConstLabels: labels,
		}),
		FlushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "iresearch_flush_duration_seconds",
			Help:        "Wall-clock duration of FieldsData.Flush calls.",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),
		FieldsFlushed: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "iresearch_fields_flushed_total",
			Help:        "Number of fields handed to the field writer during flush.",
			ConstLabels: labels,
		}),
		InvertRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "iresearch_invert_rejected_total",
			Help:        "Number of Invert calls that returned false, by field.",
			ConstLabels: labels,
		}, []string{"field"}),
		PoolExhaustedTot: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "iresearch_pool_oom_total",
			Help:        "Number of fatal pool exhaustion events observed by this segment.",
			ConstLabels: labels,
		}),
	}
	reg.MustRegister(m.BlocksAllocated, m.FlushDuration, m.FieldsFlushed, m.InvertRejected, m.PoolExhaustedTot)
	return m
}

// Registry exposes the private registry for callers that want to
// expose it (e.g. via an HTTP handler); out of scope for the core
// itself.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveFlush records one flush's duration.
func (m *Metrics) ObserveFlush(d time.Duration) { m.FlushDuration.Observe(d.Seconds()) }

// NewLogger returns a child of base carrying segmentID as a structured
// field, or a no-op logger if base is nil.
func NewLogger(base *zap.Logger, segmentID string) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	return base.With(zap.String("segment_id", segmentID))
}
