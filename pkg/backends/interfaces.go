package backends

import (
	"github.com/intentor/anlog/internal/metrics"
	"github.com/intentor/anlog/pkg/types"
)

// Sink is the contract every destination in this package implements.
type Sink = types.Sink

// LevelSetter is implemented by sinks whose minimum level can change at runtime.
type LevelSetter interface {
	SetMinimumLevel(level *types.Level)
}

// StatsProvider is implemented by sinks that count their output.
type StatsProvider interface {
	// Name returns the sink name used as the metrics label
	Name() string

	// Stats returns a snapshot of the sink counters
	Stats() metrics.Stats
}

// lineTarget is where a sink appends rendered lines.
type lineTarget interface {
	// WriteLine appends line and a newline, and flushes
	WriteLine(line string) (int, error)

	// Path returns the destination path or address
	Path() string

	// Close releases the destination
	Close() error
}

var (
	_ Sink = (*FileSink)(nil)
	_ Sink = (*ConsoleSink)(nil)
	_ Sink = (*AsyncSink)(nil)
	_ Sink = (*RotatingFileSink)(nil)
	_ Sink = (*NATSSink)(nil)

	_ LevelSetter = (*FileSink)(nil)
	_ LevelSetter = (*AsyncSink)(nil)

	_ StatsProvider = (*FileSink)(nil)
	_ StatsProvider = (*RotatingFileSink)(nil)
	_ StatsProvider = (*AsyncSink)(nil)

	_ lineTarget = (*fileTarget)(nil)
	_ lineTarget = (*streamTarget)(nil)
	_ lineTarget = (*natsTarget)(nil)
)
