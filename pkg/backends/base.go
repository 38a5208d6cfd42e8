package backends

import (
	"sync/atomic"

	"github.com/intentor/anlog/internal/metrics"
	"github.com/intentor/anlog/pkg/formatters"
	"github.com/intentor/anlog/pkg/types"
)

// Option configures a sink.
type Option func(*sinkBase)

// WithName sets the sink name used in metrics labels and error reports.
func WithName(name string) Option {
	return func(b *sinkBase) {
		if name != "" {
			b.name = name
		}
	}
}

// WithFormatter replaces the sink's default formatter.
func WithFormatter(f formatters.Formatter) Option {
	return func(b *sinkBase) {
		if f != nil {
			b.formatter = f
		}
	}
}

// WithFormatOptions sets the date format and time zone of the default
// formatter. It has no effect together with WithFormatter.
func WithFormatOptions(opts ...formatters.Option) Option {
	return func(b *sinkBase) {
		b.formatOpts = append(b.formatOpts, opts...)
	}
}

// WithMinimumLevel drops events below level. nil inherits the logger's level.
func WithMinimumLevel(level *types.Level) Option {
	return func(b *sinkBase) {
		b.SetMinimumLevel(level)
	}
}

// WithErrorHandler sets the handler told about write failures.
func WithErrorHandler(handler types.ErrorHandler) Option {
	return func(b *sinkBase) {
		b.SetErrorHandler(handler)
	}
}

// WithMetrics reports the sink's counters into collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(b *sinkBase) {
		b.collector = collector
	}
}

// sinkBase carries what every sink shares: name, formatter, minimum level,
// error handler and metrics.
type sinkBase struct {
	types.LevelGate

	name       string
	formatter  formatters.Formatter
	formatOpts []formatters.Option
	handler    atomic.Pointer[types.ErrorHandler]
	collector  *metrics.Collector
	metrics    *metrics.SinkMetrics
}

// newSinkBase applies opts. When no formatter was given, fallback builds
// one from the format options; a nil fallback means the compact formatter.
func newSinkBase(defaultName string, opts []Option, fallback func(...formatters.Option) formatters.Formatter) *sinkBase {
	b := &sinkBase{name: defaultName}
	b.SetErrorHandler(types.DefaultErrorHandler())
	for _, opt := range opts {
		opt(b)
	}
	if b.formatter == nil {
		if fallback == nil {
			b.formatter = formatters.NewCompactFormatter(b.formatOpts...)
		} else {
			b.formatter = fallback(b.formatOpts...)
		}
	}
	b.metrics = b.collector.Sink(b.name)
	return b
}

// Name returns the sink name.
func (b *sinkBase) Name() string {
	return b.name
}

// Stats returns a snapshot of the sink counters.
func (b *sinkBase) Stats() metrics.Stats {
	return b.metrics.GetStats()
}

// SetErrorHandler replaces the error handler; nil restores the default.
func (b *sinkBase) SetErrorHandler(handler types.ErrorHandler) {
	if handler == nil {
		handler = types.DefaultErrorHandler()
	}
	b.handler.Store(&handler)
}

func (b *sinkBase) report(op, dest, msg string, err error, level types.ErrorLevel) {
	if h := b.handler.Load(); h != nil {
		(*h).Report(op, dest, msg, err, level)
	}
}

// errorHandler returns the current handler, for components the sink owns.
func (b *sinkBase) errorHandler() types.ErrorHandler {
	return func(e types.LogError) {
		if h := b.handler.Load(); h != nil {
			(*h)(e)
		}
	}
}

// writeLine appends line to t and records the outcome.
func (b *sinkBase) writeLine(t lineTarget, line string) {
	n, err := t.WriteLine(line)
	if err != nil {
		b.metrics.TrackError()
		b.report("write", t.Path(), "Failed to write log line", err, types.ErrorLevelMedium)
		return
	}
	b.metrics.TrackWrite(n)
}

// recoverWrite turns a panic in Write into a dropped event. It must be
// deferred directly.
func (b *sinkBase) recoverWrite(dest string) {
	if p := recover(); p != nil {
		b.metrics.TrackDropped(metrics.DropPanic)
		b.report("write", dest, "Panic while writing log event", types.RecoverPanic(p), types.ErrorLevelMedium)
	}
}
