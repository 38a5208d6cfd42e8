// Package metrics exposes sink activity as Prometheus metrics.
package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Drop reasons used as the "reason" label of anlog_events_dropped_total.
const (
	DropClosed = "closed"
	DropPanic  = "panic"
	DropError  = "error"
)

// Collector owns the metric vectors shared by all sinks.
//
// Metrics:
//   - anlog_lines_written_total: Lines delivered, by sink
//   - anlog_bytes_written_total: Bytes delivered, by sink
//   - anlog_events_dropped_total: Events discarded, by sink and reason
//   - anlog_write_errors_total: Failed writes, by sink
//   - anlog_rotations_total: File rotations, by sink
//   - anlog_files_expired_total: Rotated files deleted by the sweeper, by sink
//   - anlog_async_queue_depth: Events waiting in an async queue, by sink
//
// A nil *Collector is valid and records nothing.
type Collector struct {
	linesWritten  *prometheus.CounterVec
	bytesWritten  *prometheus.CounterVec
	eventsDropped *prometheus.CounterVec
	writeErrors   *prometheus.CounterVec
	rotations     *prometheus.CounterVec
	filesExpired  *prometheus.CounterVec
	queueDepth    *prometheus.GaugeVec

	sinks sync.Map // string -> *SinkMetrics
}

// NewCollector creates unregistered metric vectors. Call Register to expose
// them.
func NewCollector() *Collector {
	c := &Collector{
		linesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "anlog",
			Name:      "lines_written_total",
			Help:      "Total number of log lines delivered",
		}, []string{"sink"}),
		bytesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "anlog",
			Name:      "bytes_written_total",
			Help:      "Total number of bytes delivered",
		}, []string{"sink"}),
		eventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "anlog",
			Name:      "events_dropped_total",
			Help:      "Total number of events discarded",
		}, []string{"sink", "reason"}),
		writeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "anlog",
			Name:      "write_errors_total",
			Help:      "Total number of failed writes",
		}, []string{"sink"}),
		rotations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "anlog",
			Name:      "rotations_total",
			Help:      "Total number of file rotations",
		}, []string{"sink"}),
		filesExpired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "anlog",
			Name:      "files_expired_total",
			Help:      "Total number of expired files deleted",
		}, []string{"sink"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "anlog",
			Name:      "async_queue_depth",
			Help:      "Number of events waiting in an async queue",
		}, []string{"sink"}),
	}

	return c
}

// Register adds the collector's vectors to registry. Vectors another
// Collector already registered there are adopted, so loggers built against
// one registerer share their series. Register must run before the first
// call to Sink.
//
// Parameters:
//   - registry: The Prometheus registerer; nil is a no-op
//
// Returns:
//   - error: The first registration failure other than a duplicate
func (c *Collector) Register(registry prometheus.Registerer) error {
	if c == nil || registry == nil {
		return nil
	}
	for _, vec := range []**prometheus.CounterVec{
		&c.linesWritten,
		&c.bytesWritten,
		&c.eventsDropped,
		&c.writeErrors,
		&c.rotations,
		&c.filesExpired,
	} {
		existing, err := register(registry, *vec)
		if err != nil {
			return err
		}
		if cv, ok := existing.(*prometheus.CounterVec); ok {
			*vec = cv
		}
	}
	existing, err := register(registry, c.queueDepth)
	if err != nil {
		return err
	}
	if gv, ok := existing.(*prometheus.GaugeVec); ok {
		c.queueDepth = gv
	}
	return nil
}

// register returns the already registered collector when col duplicates
// one, nil otherwise.
func register(registry prometheus.Registerer, col prometheus.Collector) (prometheus.Collector, error) {
	err := registry.Register(col)
	if err == nil {
		return nil, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		return are.ExistingCollector, nil
	}
	return nil, errors.Wrap(err, "failed to register metrics")
}

// Sink returns the metrics bound to one sink name. Repeated calls with the
// same name return the same value.
func (c *Collector) Sink(name string) *SinkMetrics {
	if c == nil {
		return nil
	}
	if m, ok := c.sinks.Load(name); ok {
		return m.(*SinkMetrics)
	}
	m := &SinkMetrics{
		name:         name,
		collector:    c,
		linesWritten: c.linesWritten.WithLabelValues(name),
		bytesWritten: c.bytesWritten.WithLabelValues(name),
		writeErrors:  c.writeErrors.WithLabelValues(name),
		rotations:    c.rotations.WithLabelValues(name),
		filesExpired: c.filesExpired.WithLabelValues(name),
		queueDepth:   c.queueDepth.WithLabelValues(name),
	}
	actual, _ := c.sinks.LoadOrStore(name, m)
	return actual.(*SinkMetrics)
}

// SinkMetrics records the activity of one sink. All methods are safe on a
// nil receiver.
type SinkMetrics struct {
	name      string
	collector *Collector

	linesWritten prometheus.Counter
	bytesWritten prometheus.Counter
	writeErrors  prometheus.Counter
	rotations    prometheus.Counter
	filesExpired prometheus.Counter
	queueDepth   prometheus.Gauge

	lines   atomic.Uint64
	bytes   atomic.Uint64
	dropped atomic.Uint64
	errors  atomic.Uint64
	rotated atomic.Uint64
	expired atomic.Uint64
}

// Name returns the sink label.
func (m *SinkMetrics) Name() string {
	if m == nil {
		return ""
	}
	return m.name
}

// TrackWrite records one delivered line of n bytes.
func (m *SinkMetrics) TrackWrite(n int) {
	if m == nil {
		return
	}
	m.lines.Add(1)
	m.bytes.Add(uint64(n))
	m.linesWritten.Inc()
	m.bytesWritten.Add(float64(n))
}

// TrackDropped records a discarded event.
func (m *SinkMetrics) TrackDropped(reason string) {
	if m == nil {
		return
	}
	m.dropped.Add(1)
	m.collector.eventsDropped.WithLabelValues(m.name, reason).Inc()
}

// TrackError records a failed write.
func (m *SinkMetrics) TrackError() {
	if m == nil {
		return
	}
	m.errors.Add(1)
	m.writeErrors.Inc()
}

// TrackRotation records a switch to a new file.
func (m *SinkMetrics) TrackRotation() {
	if m == nil {
		return
	}
	m.rotated.Add(1)
	m.rotations.Inc()
}

// TrackExpired records a deleted expired file.
func (m *SinkMetrics) TrackExpired() {
	if m == nil {
		return
	}
	m.expired.Add(1)
	m.filesExpired.Inc()
}

// SetQueueDepth publishes the current async queue length.
func (m *SinkMetrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

// Stats represents basic statistics
type Stats struct {
	LinesWritten uint64
	BytesWritten uint64
	DroppedCount uint64
	ErrorCount   uint64
	Rotations    uint64
	FilesExpired uint64
}

// GetStats returns a snapshot of the sink's counters
func (m *SinkMetrics) GetStats() Stats {
	if m == nil {
		return Stats{}
	}
	return Stats{
		LinesWritten: m.lines.Load(),
		BytesWritten: m.bytes.Load(),
		DroppedCount: m.dropped.Load(),
		ErrorCount:   m.errors.Load(),
		Rotations:    m.rotated.Load(),
		FilesExpired: m.expired.Load(),
	}
}
