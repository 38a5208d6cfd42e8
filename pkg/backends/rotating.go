package backends

import (
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/intentor/anlog/internal/metrics"
	"github.com/intentor/anlog/pkg/features"
	"github.com/intentor/anlog/pkg/types"
)

// RotatingConfig describes a rotating file set.
type RotatingConfig struct {
	// Dir holds the log-<stamp>-<sequence>.<ext> files
	Dir string
	// Period is features.Day or features.Hour
	Period features.Period
	// MaxSize rotates within a period once a file reaches it; 0 disables
	MaxSize int64
	// Retention is how many periods files are kept; 0 keeps them forever
	Retention int
	// SweepInterval is the expiry tick (default one minute)
	SweepInterval time.Duration
	// SweepSchedule is a cron spec used instead of SweepInterval
	SweepSchedule string
	// Extension defaults to "txt"
	Extension string
	// Location stamps files and ages them; nil keeps the write time's own
	Location *time.Location
	// Clock replaces time.Now for recovery and expiry
	Clock func() time.Time
}

// RotatingFileSink appends events to a set of files named by period and
// sequence. Each write decides the target file and appends to it under one
// lock, so two writers can never both rotate. The sink owns an expiry
// sweeper that is started with it and stopped by Close.
type RotatingFileSink struct {
	*sinkBase

	mu      sync.Mutex
	namer   *features.Namer
	target  *fileTarget
	sweeper *features.ExpirySweeper
	clock   func() time.Time
	closed  bool
}

// NewRotatingFileSink creates the directory, recovers the rotation state
// from the files already in it and starts the expiry sweeper.
//
// Parameters:
//   - cfg: Directory, period, size ceiling, retention and sweep settings
//   - opts: Name, formatter, minimum level, error handler and metrics options
//
// Returns:
//   - *RotatingFileSink: The running sink; Close stops its sweeper
//   - error: For an invalid period, an unusable directory or a bad schedule
//
// Example:
//
//	sink, err := backends.NewRotatingFileSink(backends.RotatingConfig{
//	    Dir:       "/var/log/app",
//	    Period:    features.Day,
//	    MaxSize:   10 << 20,
//	    Retention: 7,
//	})
func NewRotatingFileSink(cfg RotatingConfig, opts ...Option) (*RotatingFileSink, error) {
	if cfg.Dir == "" {
		return nil, errors.New("rotating sink directory is empty")
	}
	if !cfg.Period.Valid() {
		return nil, errors.Wrap(types.ErrInvalidPeriod, "rotating sink")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	// #nosec G301 - log directories need to be accessible by other processes
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "create rotating sink directory %s", cfg.Dir)
	}

	s := &RotatingFileSink{
		sinkBase: newSinkBase("rolling", opts, nil),
		clock:    clock,
	}

	namer, err := features.NewNamer(cfg.Dir, cfg.Period, clock(),
		features.WithMaxSize(cfg.MaxSize),
		features.WithExtension(cfg.Extension),
		features.WithLocation(cfg.Location))
	if err != nil {
		return nil, errors.Wrap(err, "rotating sink")
	}
	s.namer = namer
	s.target = newFileTarget(namer.CurrentPath())

	sweeper, err := features.NewExpirySweeper(cfg.Dir, cfg.Period, cfg.Retention,
		features.WithSweepInterval(cfg.SweepInterval),
		features.WithSweepSchedule(cfg.SweepSchedule),
		features.WithSweepExtension(cfg.Extension),
		features.WithSweepLocation(cfg.Location),
		features.WithClock(clock),
		features.WithSweepErrorHandler(s.errorHandler()),
		features.WithExpiredHook(func(string) { s.metrics.TrackExpired() }))
	if err != nil {
		return nil, errors.Wrap(err, "rotating sink")
	}
	if err := sweeper.Start(); err != nil {
		return nil, errors.Wrap(err, "rotating sink")
	}
	s.sweeper = sweeper

	return s, nil
}

// Write renders ev, lets the namer pick the file for ev's time and appends
// the line to it.
func (s *RotatingFileSink) Write(ev types.Event) {
	if !s.Allows(ev.Level) {
		return
	}
	defer s.recoverWrite(s.namer.Dir())

	line := s.formatter.Format(ev)
	now := ev.Time
	if now.IsZero() {
		now = s.clock()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.metrics.TrackDropped(metrics.DropClosed)
		return
	}

	rotate, path := s.namer.Evaluate(now)
	if rotate || path != s.target.path {
		if err := s.target.Close(); err != nil {
			s.report("rotate", s.target.path, "Failed to close rotated file", err, types.ErrorLevelLow)
		}
		s.target = newFileTarget(path)
		if rotate {
			s.metrics.TrackRotation()
		}
	}

	s.writeLine(s.target, line)
}

// CurrentPath returns the file the next write goes to unless it rotates.
func (s *RotatingFileSink) CurrentPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.namer.CurrentPath()
}

// State returns the namer's rotation state.
func (s *RotatingFileSink) State() features.RotationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.namer.State()
}

// Sweep runs one expiry sweep now and returns the deleted paths.
func (s *RotatingFileSink) Sweep() []string {
	return s.sweeper.SweepNow()
}

// Sweeping reports whether the expiry sweeper is armed.
func (s *RotatingFileSink) Sweeping() bool {
	return s.sweeper.Running()
}

// Close stops the sweeper and closes the current file.
func (s *RotatingFileSink) Close() error {
	s.sweeper.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.target.Close()
}
