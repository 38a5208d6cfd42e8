package metrics

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollectorRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector()
	require.NoError(t, c.Register(reg))

	c.Sink("file").TrackWrite(10)

	count, err := testutil.GatherAndCount(reg, "anlog_lines_written_total", "anlog_bytes_written_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRegisterAdoptsExistingVectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewCollector()
	require.NoError(t, first.Register(reg))
	second := NewCollector()
	require.NoError(t, second.Register(reg))

	first.Sink("file").TrackWrite(3)
	second.Sink("file").TrackWrite(4)

	assert.Same(t, first.linesWritten, second.linesWritten)
	assert.Same(t, first.queueDepth, second.queueDepth)
	assert.Equal(t, 2.0, testutil.ToFloat64(first.linesWritten.WithLabelValues("file")))
	assert.Equal(t, 7.0, testutil.ToFloat64(second.bytesWritten.WithLabelValues("file")))
	assert.Equal(t, uint64(1), second.Sink("file").GetStats().LinesWritten, "snapshots stay per collector")
}

func TestRegisterErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "anlog_rotations_total",
		Help: "A gauge with the same name",
	}))

	assert.Error(t, NewCollector().Register(reg))
	assert.NoError(t, NewCollector().Register(nil))

	var c *Collector
	assert.NoError(t, c.Register(reg))
}

func TestSinkMetricsTracking(t *testing.T) {
	c := NewCollector()
	m := c.Sink("rolling")

	tests := []struct {
		name  string
		track func()
		check func(t *testing.T)
	}{
		{"write", func() { m.TrackWrite(5); m.TrackWrite(7) }, func(t *testing.T) {
			assert.Equal(t, 2.0, testutil.ToFloat64(c.linesWritten.WithLabelValues("rolling")))
			assert.Equal(t, 12.0, testutil.ToFloat64(c.bytesWritten.WithLabelValues("rolling")))
		}},
		{"dropped", func() { m.TrackDropped(DropClosed) }, func(t *testing.T) {
			assert.Equal(t, 1.0, testutil.ToFloat64(c.eventsDropped.WithLabelValues("rolling", DropClosed)))
		}},
		{"error", func() { m.TrackError() }, func(t *testing.T) {
			assert.Equal(t, 1.0, testutil.ToFloat64(c.writeErrors.WithLabelValues("rolling")))
		}},
		{"rotation", func() { m.TrackRotation() }, func(t *testing.T) {
			assert.Equal(t, 1.0, testutil.ToFloat64(c.rotations.WithLabelValues("rolling")))
		}},
		{"expired", func() { m.TrackExpired(); m.TrackExpired() }, func(t *testing.T) {
			assert.Equal(t, 2.0, testutil.ToFloat64(c.filesExpired.WithLabelValues("rolling")))
		}},
		{"queue depth", func() { m.SetQueueDepth(3) }, func(t *testing.T) {
			assert.Equal(t, 3.0, testutil.ToFloat64(c.queueDepth.WithLabelValues("rolling")))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.track()
			tt.check(t)
		})
	}

	assert.Equal(t, Stats{
		LinesWritten: 2,
		BytesWritten: 12,
		DroppedCount: 1,
		ErrorCount:   1,
		Rotations:    1,
		FilesExpired: 2,
	}, m.GetStats())
}

func TestSinkReturnsSameMetrics(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	got := make([]*SinkMetrics, 16)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = c.Sink("console")
		}(i)
	}
	wg.Wait()

	for _, m := range got {
		assert.Same(t, got[0], m)
	}
	assert.Equal(t, "console", got[0].Name())
}

func TestNilSafety(t *testing.T) {
	var c *Collector
	m := c.Sink("x")
	assert.Nil(t, m)

	assert.NotPanics(t, func() {
		m.TrackWrite(1)
		m.TrackDropped(DropPanic)
		m.TrackError()
		m.TrackRotation()
		m.TrackExpired()
		m.SetQueueDepth(1)
	})
	assert.Equal(t, Stats{}, m.GetStats())
	assert.Equal(t, "", m.Name())
}
