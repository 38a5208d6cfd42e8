package anlog

import (
	"context"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/intentor/anlog/internal/metrics"
	"github.com/intentor/anlog/pkg/backends"
	"github.com/intentor/anlog/pkg/entries"
	"github.com/intentor/anlog/pkg/features"
	"github.com/intentor/anlog/pkg/formatters"
	"github.com/intentor/anlog/pkg/introspect"
	"github.com/intentor/anlog/pkg/types"
)

// buildOptions are the extras New accepts besides the Config.
type buildOptions struct {
	registerer   prometheus.Registerer
	errorHandler types.ErrorHandler
	extra        []Option
}

// BuildOption configures New.
type BuildOption func(*buildOptions)

// WithRegisterer registers sink metrics on reg.
func WithRegisterer(reg prometheus.Registerer) BuildOption {
	return func(o *buildOptions) {
		o.registerer = reg
	}
}

// WithSinkErrorHandler sets the error handler of every sink built.
func WithSinkErrorHandler(handler types.ErrorHandler) BuildOption {
	return func(o *buildOptions) {
		o.errorHandler = handler
	}
}

// WithLoggerOptions passes options through to NewLogger.
func WithLoggerOptions(opts ...Option) BuildOption {
	return func(o *buildOptions) {
		o.extra = append(o.extra, opts...)
	}
}

// New builds a logger and its sinks from cfg. If any sink cannot be built,
// the sinks already built are closed and the error is returned.
//
// Parameters:
//   - cfg: The configuration; nil means DefaultConfig()
//   - opts: Metrics registerer, error handler and logger options
//
// Returns:
//   - *Logger: The logger; Close it to flush and release every sink
//   - error: A validation or sink construction error
//
// Example:
//
//	cfg, err := anlog.LoadConfig("anlog.yaml")
//	if err != nil {
//	    return err
//	}
//	logger, err := anlog.New(cfg)
//	if err != nil {
//	    return err
//	}
//	defer logger.Close(context.Background())
func New(cfg *Config, opts ...BuildOption) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &buildOptions{}
	for _, opt := range opts {
		opt(o)
	}

	var collector *metrics.Collector
	if o.registerer != nil {
		collector = metrics.NewCollector()
		if err := collector.Register(o.registerer); err != nil {
			return nil, err
		}
	}

	var formatOpts []formatters.Option
	var builderOpts []entries.BuilderOption
	if cfg.DateFormat != "" {
		formatOpts = append(formatOpts, formatters.WithDateFormat(cfg.DateFormat))
		builderOpts = append(builderOpts, entries.WithDateFormat(cfg.DateFormat))
	}

	cache := introspect.Shared()
	if cfg.Introspection.OptIn {
		cache = introspect.New(introspect.WithOptIn())
	}

	b := &sinkBuilder{
		collector:  collector,
		handler:    o.errorHandler,
		formatOpts: formatOpts,
	}
	if err := b.build(cfg); err != nil {
		b.closeAll()
		return nil, err
	}

	loggerOpts := []Option{
		WithSinks(b.sinks...),
		WithBuilder(entries.NewBuilder(cache, builderOpts...)),
		WithErrorHandler(o.errorHandler),
	}
	if floor, _ := parseOptionalLevel(cfg.MinimumLevel); floor != nil {
		loggerOpts = append(loggerOpts, WithMinimumLevel(*floor))
	}
	return NewLogger(append(loggerOpts, o.extra...)...), nil
}

type sinkBuilder struct {
	collector  *metrics.Collector
	handler    types.ErrorHandler
	formatOpts []formatters.Option
	sinks      []types.Sink
}

// options returns the sink options for one configured sink. An empty
// format keeps the sink's default formatter.
func (b *sinkBuilder) options(name, level, format string) ([]backends.Option, error) {
	floor, _ := parseOptionalLevel(level)
	opts := []backends.Option{
		backends.WithName(name),
		backends.WithMinimumLevel(floor),
		backends.WithMetrics(b.collector),
		backends.WithErrorHandler(b.handler),
		backends.WithFormatOptions(b.formatOpts...),
	}
	if format != "" {
		f, err := formatters.CreateFormatter(format, b.formatOpts...)
		if err != nil {
			return nil, errors.Wrapf(err, "%s sink", name)
		}
		opts = append(opts, backends.WithFormatter(f))
	}
	return opts, nil
}

func (b *sinkBuilder) add(s types.Sink, async bool) {
	if async {
		s = backends.NewAsyncSink(s,
			backends.WithAsyncMetrics(b.collector),
			backends.WithAsyncErrorHandler(b.handler))
	}
	b.sinks = append(b.sinks, s)
}

func (b *sinkBuilder) build(cfg *Config) error {
	if cfg.Console.Enabled {
		opts, _ := b.options("console", cfg.Console.MinimumLevel, "")
		s, err := backends.NewConsoleSink(cfg.Console.Theme, opts...)
		if err != nil {
			return errors.Wrap(err, "console sink")
		}
		b.add(s, cfg.Console.Async)
	}

	if cfg.File.Path != "" {
		opts, err := b.options("file", cfg.File.MinimumLevel, cfg.File.Format)
		if err != nil {
			return err
		}
		s, err := backends.NewFileSink(cfg.File.Path, opts...)
		if err != nil {
			return err
		}
		b.add(s, cfg.File.Async)
	}

	if cfg.Rolling.Dir != "" {
		period, err := features.ParsePeriod(cfg.Rolling.Period)
		if err != nil {
			return err
		}
		loc, err := cfg.Rolling.Location()
		if err != nil {
			return err
		}
		opts, err := b.options("rolling", cfg.Rolling.MinimumLevel, cfg.Rolling.Format)
		if err != nil {
			return err
		}
		s, err := backends.NewRotatingFileSink(backends.RotatingConfig{
			Dir:           cfg.Rolling.Dir,
			Period:        period,
			MaxSize:       cfg.Rolling.MaxSize,
			Retention:     cfg.Rolling.Retention,
			SweepInterval: cfg.Rolling.SweepInterval,
			SweepSchedule: cfg.Rolling.SweepSchedule,
			Extension:     cfg.Rolling.Extension,
			Location:      loc,
		}, opts...)
		if err != nil {
			return err
		}
		b.add(s, cfg.Rolling.Async)
	}

	if cfg.NATS.URL != "" {
		opts, err := b.options("nats", cfg.NATS.MinimumLevel, cfg.NATS.Format)
		if err != nil {
			return err
		}
		s, err := backends.NewNATSSink(cfg.NATS.URL, cfg.NATS.Subject, opts...)
		if err != nil {
			return err
		}
		b.add(s, cfg.NATS.Async)
	}
	return nil
}

func (b *sinkBuilder) closeAll() {
	for _, s := range b.sinks {
		_ = s.Close() // Best effort close on error path
	}
}

// Shutdown closes the default logger.
func Shutdown(ctx context.Context) error {
	return Default().Close(ctx)
}
