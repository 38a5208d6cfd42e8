package backends

import (
	"sync"

	"github.com/intentor/anlog/internal/metrics"
	"github.com/intentor/anlog/pkg/types"
)

// AsyncSink moves the work of another sink onto one background goroutine.
// Write only appends to an unbounded queue and returns; the worker forwards
// events to the wrapped sink in submission order.
//
// Close stops the worker, delivers everything still queued on the calling
// goroutine, then closes the wrapped sink. Events written after Close has
// begun are dropped. Events still queued when the process dies abnormally
// are lost; call Close on every exit path that should keep them.
type AsyncSink struct {
	inner     types.Sink
	name      string
	handler   types.ErrorHandler
	collector *metrics.Collector
	metrics   *metrics.SinkMetrics

	mu     sync.Mutex
	queue  []types.Event
	closed bool

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

// AsyncOption configures an AsyncSink.
type AsyncOption func(*AsyncSink)

// WithAsyncName sets the metrics label (default "async-" + the inner sink name).
func WithAsyncName(name string) AsyncOption {
	return func(a *AsyncSink) {
		if name != "" {
			a.name = name
		}
	}
}

// WithAsyncMetrics reports queue depth and drops into collector.
func WithAsyncMetrics(collector *metrics.Collector) AsyncOption {
	return func(a *AsyncSink) {
		a.collector = collector
	}
}

// WithAsyncErrorHandler sets the handler told about panics in the wrapped sink.
func WithAsyncErrorHandler(handler types.ErrorHandler) AsyncOption {
	return func(a *AsyncSink) {
		if handler != nil {
			a.handler = handler
		}
	}
}

// NewAsyncSink wraps inner and starts the worker goroutine.
//
// Parameters:
//   - inner: The sink events are forwarded to; AsyncSink owns it from now on
//   - opts: Name, metrics and error handler options
//
// Returns:
//   - *AsyncSink: The running wrapper; Close must be called to stop it
//
// Example:
//
//	file, _ := backends.NewFileSink("app.log")
//	sink := backends.NewAsyncSink(file)
//	defer sink.Close()
func NewAsyncSink(inner types.Sink, opts ...AsyncOption) *AsyncSink {
	a := &AsyncSink{
		inner:   inner,
		name:    "async",
		handler: types.DefaultErrorHandler(),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	if sp, ok := inner.(StatsProvider); ok {
		a.name = "async-" + sp.Name()
	}
	for _, opt := range opts {
		opt(a)
	}
	a.metrics = a.collector.Sink(a.name)

	a.wg.Add(1)
	go a.loop()
	return a
}

// Write queues ev and returns immediately.
func (a *AsyncSink) Write(ev types.Event) {
	if floor := a.inner.MinimumLevel(); floor != nil && ev.Level < *floor {
		return
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		a.metrics.TrackDropped(metrics.DropClosed)
		return
	}
	a.queue = append(a.queue, ev)
	a.metrics.SetQueueDepth(len(a.queue))
	a.mu.Unlock()

	select {
	case a.wake <- struct{}{}:
	default:
	}
}

func (a *AsyncSink) loop() {
	defer a.wg.Done()
	for {
		select {
		case <-a.wake:
			a.drain()
		case <-a.done:
			return
		}
	}
}

// drain forwards queued events until the queue is empty. Only one
// goroutine drains at a time: the worker while running, Close after it.
func (a *AsyncSink) drain() {
	for {
		a.mu.Lock()
		batch := a.queue
		a.queue = nil
		a.metrics.SetQueueDepth(0)
		a.mu.Unlock()

		if len(batch) == 0 {
			return
		}
		for _, ev := range batch {
			a.forward(ev)
		}
	}
}

func (a *AsyncSink) forward(ev types.Event) {
	defer func() {
		if p := recover(); p != nil {
			a.metrics.TrackDropped(metrics.DropPanic)
			a.handler.Report("write", a.name, "Panic in wrapped sink", types.RecoverPanic(p), types.ErrorLevelMedium)
		}
	}()
	a.inner.Write(ev)
}

// Pending returns the number of queued events not yet handed to the
// wrapped sink.
func (a *AsyncSink) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.queue)
}

// MinimumLevel returns the wrapped sink's minimum level.
func (a *AsyncSink) MinimumLevel() *types.Level {
	return a.inner.MinimumLevel()
}

// SetMinimumLevel sets the wrapped sink's minimum level when it supports it.
func (a *AsyncSink) SetMinimumLevel(level *types.Level) {
	if ls, ok := a.inner.(LevelSetter); ok {
		ls.SetMinimumLevel(level)
	}
}

// Inner returns the wrapped sink.
func (a *AsyncSink) Inner() types.Sink {
	return a.inner
}

// Name returns the metrics label.
func (a *AsyncSink) Name() string {
	return a.name
}

// Stats returns the wrapper's own counters (drops and queue depth).
func (a *AsyncSink) Stats() metrics.Stats {
	return a.metrics.GetStats()
}

// Close stops accepting events, drains the queue and closes the wrapped
// sink. Calling Close again returns the first result.
func (a *AsyncSink) Close() error {
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		a.mu.Unlock()

		close(a.done)
		a.wg.Wait()

		a.drain()
		a.closeErr = a.inner.Close()
	})
	return a.closeErr
}
