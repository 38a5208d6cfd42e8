package anlog

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/intentor/anlog/pkg/entries"
	"github.com/intentor/anlog/pkg/introspect"
	"github.com/intentor/anlog/pkg/types"
)

// Logger fans events out to its sinks. A sink's own minimum level takes
// precedence over the logger's; a sink without one inherits it.
type Logger struct {
	types.LevelGate

	mu      sync.RWMutex
	sinks   []types.Sink
	closed  atomic.Bool
	builder *entries.Builder
	clock   func() time.Time
	handler types.ErrorHandler
}

// Option configures a Logger.
type Option func(*Logger)

// WithSinks adds sinks to the logger.
func WithSinks(sinks ...types.Sink) Option {
	return func(l *Logger) {
		for _, s := range sinks {
			if s != nil {
				l.sinks = append(l.sinks, s)
			}
		}
	}
}

// WithMinimumLevel sets the level sinks without their own minimum inherit.
func WithMinimumLevel(level types.Level) Option {
	return func(l *Logger) {
		l.SetMinimumLevel(&level)
	}
}

// WithBuilder sets the builder turning appended values into entries.
func WithBuilder(b *entries.Builder) Option {
	return func(l *Logger) {
		if b != nil {
			l.builder = b
		}
	}
}

// WithCache builds entries with cache instead of the shared process cache.
func WithCache(cache *introspect.Cache) Option {
	return func(l *Logger) {
		l.builder = entries.NewBuilder(cache)
	}
}

// WithClock replaces time.Now for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		if now != nil {
			l.clock = now
		}
	}
}

// WithErrorHandler sets the handler told about sinks that panic.
func WithErrorHandler(handler types.ErrorHandler) Option {
	return func(l *Logger) {
		if handler != nil {
			l.handler = handler
		}
	}
}

// NewLogger creates a logger. Without WithMinimumLevel every level is
// accepted by sinks that do not set their own minimum.
func NewLogger(opts ...Option) *Logger {
	l := &Logger{
		clock:   time.Now,
		handler: types.DefaultErrorHandler(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.builder == nil {
		l.builder = entries.NewBuilder(introspect.Shared())
	}
	return l
}

// AddSink attaches a sink.
func (l *Logger) AddSink(s types.Sink) {
	if s == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	sinks := make([]types.Sink, len(l.sinks), len(l.sinks)+1)
	copy(sinks, l.sinks)
	l.sinks = append(sinks, s)
}

// Sinks returns the attached sinks.
func (l *Logger) Sinks() []types.Sink {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]types.Sink(nil), l.sinks...)
}

// Builder returns the entry builder.
func (l *Logger) Builder() *entries.Builder {
	return l.builder
}

// accepts reports whether s takes an event at level.
func (l *Logger) accepts(s types.Sink, level types.Level) bool {
	if floor := s.MinimumLevel(); floor != nil {
		return level >= *floor
	}
	return l.Allows(level)
}

// Enabled reports whether at least one sink would take an event at level.
// Appenders use it to skip building entries nobody will render.
func (l *Logger) Enabled(level types.Level) bool {
	if l.closed.Load() {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, s := range l.sinks {
		if l.accepts(s, level) {
			return true
		}
	}
	return false
}

// Dispatch hands ev to every sink that accepts its level.
func (l *Logger) Dispatch(ev types.Event) {
	if l.closed.Load() {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = l.clock()
	}

	l.mu.RLock()
	sinks := l.sinks
	l.mu.RUnlock()

	for _, s := range sinks {
		if l.accepts(s, ev.Level) {
			l.write(s, ev)
		}
	}
}

func (l *Logger) write(s types.Sink, ev types.Event) {
	defer func() {
		if p := recover(); p != nil {
			l.handler.Report("dispatch", "", "Panic in sink", types.RecoverPanic(p), types.ErrorLevelMedium)
		}
	}()
	s.Write(ev)
}

// Append starts an event carrying key=value and the caller's location.
//
// Example:
//
//	logger.Append("user", u).Append("attempt", 3).Warn("login failed")
func (l *Logger) Append(key string, value interface{}) *Appender {
	return l.newAppender(captureCaller(1)).Append(key, value)
}

// Debug writes a debug event with only a message.
func (l *Logger) Debug(message string, args ...interface{}) {
	l.newAppender(captureCaller(1)).finish(types.LevelDebug, message, args, nil)
}

// Info writes an info event with only a message.
func (l *Logger) Info(message string, args ...interface{}) {
	l.newAppender(captureCaller(1)).finish(types.LevelInfo, message, args, nil)
}

// Warn writes a warning event with only a message.
func (l *Logger) Warn(message string, args ...interface{}) {
	l.newAppender(captureCaller(1)).finish(types.LevelWarn, message, args, nil)
}

// Error writes an error event with only a message.
func (l *Logger) Error(message string, args ...interface{}) {
	l.newAppender(captureCaller(1)).finish(types.LevelError, message, args, nil)
}

// ErrorWith writes an error event carrying err's type, message and stack.
func (l *Logger) ErrorWith(err error, message string, args ...interface{}) {
	l.newAppender(captureCaller(1)).finish(types.LevelError, message, args, err)
}

// Close closes every sink concurrently. Async sinks drain their queues
// first. If ctx ends before all sinks are closed, Close returns ctx.Err()
// and the remaining sinks keep closing in the background.
//
// Parameters:
//   - ctx: Bounds how long Close waits
//
// Returns:
//   - error: The first sink close error, or ctx.Err()
func (l *Logger) Close(ctx context.Context) error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}

	var g errgroup.Group
	for _, s := range l.Sinks() {
		s := s
		g.Go(func() error {
			return errors.Wrapf(s.Close(), "close sink %T", s)
		})
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Closed reports whether Close has been called.
func (l *Logger) Closed() bool {
	return l.closed.Load()
}

var defaultLogger atomic.Pointer[Logger]

// Default returns the process logger set with SetDefault, or a logger
// with no sinks.
func Default() *Logger {
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	l := NewLogger()
	if defaultLogger.CompareAndSwap(nil, l) {
		return l
	}
	return defaultLogger.Load()
}

// SetDefault replaces the process logger used by the package-level Append.
func SetDefault(l *Logger) {
	defaultLogger.Store(l)
}

// Append starts an event on the default logger.
func Append(key string, value interface{}) *Appender {
	return Default().newAppender(captureCaller(1)).Append(key, value)
}
