package backends

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/intentor/anlog/internal/metrics"
	"github.com/intentor/anlog/pkg/types"
)

func numbered(n int) types.Event {
	return event(types.LevelInfo, testTime, "n", fmt.Sprint(n))
}

func TestAsyncSinkPreservesOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	inner := &recordingSink{}
	sink := NewAsyncSink(inner)

	const total = 2000
	for i := 0; i < total; i++ {
		sink.Write(numbered(i))
	}
	require.NoError(t, sink.Close())

	seq := inner.Sequence(t)
	require.Len(t, seq, total)
	for i, n := range seq {
		require.Equal(t, i, n, "event %d delivered out of order", i)
	}
}

func TestAsyncSinkWriteDoesNotBlock(t *testing.T) {
	defer goleak.VerifyNone(t)

	inner := &recordingSink{block: make(chan struct{})}
	sink := NewAsyncSink(inner)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			sink.Write(numbered(i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Write blocked while the wrapped sink was stalled")
	}
	assert.Empty(t, inner.Events())

	close(inner.block)
	require.NoError(t, sink.Close())
	assert.Len(t, inner.Events(), 100)
}

func TestAsyncSinkCloseDrainsQueue(t *testing.T) {
	defer goleak.VerifyNone(t)

	gate := make(chan struct{})
	inner := &recordingSink{block: gate}
	sink := NewAsyncSink(inner)

	for i := 0; i < 50; i++ {
		sink.Write(numbered(i))
	}

	closed := make(chan error)
	go func() { closed <- sink.Close() }()

	// Close waits for the worker, which is stuck in the wrapped sink.
	select {
	case <-closed:
		t.Fatal("Close returned before the queue was drained")
	case <-time.After(20 * time.Millisecond):
	}

	close(gate)
	require.NoError(t, <-closed)

	assert.Equal(t, 50, len(inner.Sequence(t)))
	assert.Equal(t, 1, inner.closes)
	assert.Zero(t, sink.Pending())
}

func TestAsyncSinkDropsAfterClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	inner := &recordingSink{}
	sink := NewAsyncSink(inner, WithAsyncMetrics(metrics.NewCollector()))

	sink.Write(numbered(1))
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close(), "closing twice returns the first result")

	sink.Write(numbered(2))

	assert.Equal(t, []int{1}, inner.Sequence(t))
	assert.Equal(t, 1, inner.closes, "wrapped sink closed once")
	assert.Equal(t, uint64(1), sink.Stats().DroppedCount)
}

func TestAsyncSinkRecoversWrappedPanic(t *testing.T) {
	defer goleak.VerifyNone(t)

	errs := &errorRecorder{}
	inner := &recordingSink{panics: true}
	sink := NewAsyncSink(inner, WithAsyncErrorHandler(errs.Handle))

	sink.Write(event(types.LevelInfo, testTime, "n", "1"))
	sink.Write(event(types.LevelInfo, testTime, "n", "boom"))
	sink.Write(event(types.LevelInfo, testTime, "n", "3"))
	require.NoError(t, sink.Close())

	assert.Equal(t, []int{1, 3}, inner.Sequence(t))
	require.Len(t, errs.All(), 1)
	assert.Equal(t, "write", errs.All()[0].Operation)
}

func TestAsyncSinkConcurrentWriters(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "app.log")
	inner, err := NewFileSink(path)
	require.NoError(t, err)
	sink := NewAsyncSink(inner)

	const writers, perWriter = 8, 100
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				sink.Write(numbered(i))
			}
		}()
	}
	wg.Wait()
	require.NoError(t, sink.Close())

	assert.Len(t, readLines(t, path), writers*perWriter)
}

func TestAsyncSinkQueueDepthSettlesAtZero(t *testing.T) {
	defer goleak.VerifyNone(t)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector()
	require.NoError(t, collector.Register(registry))

	inner := &recordingSink{}
	sink := NewAsyncSink(inner, WithAsyncMetrics(collector))
	defer sink.Close()

	const writers, perWriter = 8, 200
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				sink.Write(numbered(i))
			}
		}()
	}
	wg.Wait()

	empty := `
# HELP anlog_async_queue_depth Number of events waiting in an async queue
# TYPE anlog_async_queue_depth gauge
anlog_async_queue_depth{sink="async"} 0
`
	require.Eventually(t, func() bool {
		return len(inner.Events()) == writers*perWriter
	}, 5*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return testutil.GatherAndCompare(registry, strings.NewReader(empty), "anlog_async_queue_depth") == nil
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, sink.Pending())
}

func TestAsyncSinkLevelDelegation(t *testing.T) {
	defer goleak.VerifyNone(t)

	inner := &recordingSink{}
	sink := NewAsyncSink(inner)
	defer sink.Close()

	assert.Nil(t, sink.MinimumLevel())
	sink.SetMinimumLevel(types.LevelPtr(types.LevelWarn))
	require.NotNil(t, inner.MinimumLevel())
	assert.Equal(t, types.LevelWarn, *sink.MinimumLevel())

	sink.Write(event(types.LevelInfo, testTime))
	assert.Zero(t, sink.Pending(), "filtered before queueing")
}

func TestAsyncSinkName(t *testing.T) {
	defer goleak.VerifyNone(t)

	file, err := NewFileSink(filepath.Join(t.TempDir(), "app.log"), WithName("audit"))
	require.NoError(t, err)
	sink := NewAsyncSink(file)
	assert.Equal(t, "async-audit", sink.Name())
	assert.Same(t, file, sink.Inner())
	require.NoError(t, sink.Close())

	named := NewAsyncSink(&recordingSink{}, WithAsyncName("queue"))
	assert.Equal(t, "queue", named.Name())
	require.NoError(t, named.Close())
}
