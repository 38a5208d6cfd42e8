package features

import (
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/intentor/anlog/pkg/types"
)

// DefaultSweepInterval is how often expired files are looked for when no
// interval or schedule is configured.
const DefaultSweepInterval = time.Minute

// ExpirySweeper periodically deletes rotated files older than a retention
// count of whole periods. It runs either on a fixed interval or on a cron
// schedule, and is stopped by its owner.
type ExpirySweeper struct {
	mu        sync.Mutex
	dir       string
	period    Period
	ext       string
	retention int
	interval  time.Duration
	schedule  string
	location  *time.Location
	now       func() time.Time

	errorHandler types.ErrorHandler
	onExpired    func(path string)

	ticker  *time.Ticker
	done    chan struct{}
	wg      sync.WaitGroup
	cron    *cron.Cron
	running bool
}

// SweeperOption configures an ExpirySweeper.
type SweeperOption func(*ExpirySweeper)

// WithSweepInterval sets the tick interval.
func WithSweepInterval(interval time.Duration) SweeperOption {
	return func(s *ExpirySweeper) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithSweepSchedule runs sweeps on a cron schedule ("@hourly",
// "0 3 * * *") instead of a fixed interval.
func WithSweepSchedule(spec string) SweeperOption {
	return func(s *ExpirySweeper) {
		s.schedule = spec
	}
}

// WithSweepExtension sets the extension of the files swept.
func WithSweepExtension(ext string) SweeperOption {
	return func(s *ExpirySweeper) {
		s.ext = normalizeExtension(ext)
	}
}

// WithSweepLocation evaluates stamps and file ages in loc instead of the
// clock's location.
func WithSweepLocation(loc *time.Location) SweeperOption {
	return func(s *ExpirySweeper) {
		s.location = loc
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SweeperOption {
	return func(s *ExpirySweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSweepErrorHandler sets the handler told about failed deletions.
func WithSweepErrorHandler(handler types.ErrorHandler) SweeperOption {
	return func(s *ExpirySweeper) {
		s.errorHandler = handler
	}
}

// WithExpiredHook sets a function called with each deleted path.
func WithExpiredHook(hook func(path string)) SweeperOption {
	return func(s *ExpirySweeper) {
		s.onExpired = hook
	}
}

// NewExpirySweeper creates a stopped sweeper for dir. A retention of 0
// disables sweeping: Start then arms nothing.
//
// Parameters:
//   - dir: Directory holding the rotated files
//   - period: The period the files are named by
//   - retention: Files whose age in whole periods is at least retention are deleted
//   - opts: Interval, schedule, clock and hook options
//
// Returns:
//   - *ExpirySweeper: The sweeper, not yet started
//   - error: For an invalid period, a negative retention or a bad cron spec
func NewExpirySweeper(dir string, period Period, retention int, opts ...SweeperOption) (*ExpirySweeper, error) {
	if !period.Valid() {
		return nil, errors.Wrapf(types.ErrInvalidPeriod, "period %q", period.name)
	}
	if retention < 0 {
		return nil, errors.Errorf("retention must not be negative, got %d", retention)
	}

	s := &ExpirySweeper{
		dir:          dir,
		period:       period,
		ext:          DefaultExtension,
		retention:    retention,
		interval:     DefaultSweepInterval,
		now:          time.Now,
		errorHandler: types.DefaultErrorHandler(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.schedule != "" {
		if _, err := cron.ParseStandard(s.schedule); err != nil {
			return nil, errors.Wrapf(err, "invalid sweep schedule %q", s.schedule)
		}
	}
	return s, nil
}

// Start arms the timer or cron schedule. It is a no-op when retention is 0
// or the sweeper is already running.
func (s *ExpirySweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running || s.retention == 0 {
		return nil
	}

	if s.schedule != "" {
		c := cron.New()
		if _, err := c.AddFunc(s.schedule, s.safeSweep); err != nil {
			return errors.Wrapf(err, "failed to schedule sweep %q", s.schedule)
		}
		c.Start()
		s.cron = c
		s.running = true
		return nil
	}

	s.ticker = time.NewTicker(s.interval)
	s.done = make(chan struct{})
	ticker, done := s.ticker, s.done

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-ticker.C:
				s.safeSweep()
			case <-done:
				return
			}
		}
	}()
	s.running = true
	return nil
}

// Stop disarms the sweeper and waits for a sweep in progress to finish.
// It is safe to call more than once.
func (s *ExpirySweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.cron = nil
	}
	if s.ticker != nil {
		s.ticker.Stop()
		close(s.done)
		s.wg.Wait()
		s.ticker = nil
		s.done = nil
	}
	s.running = false
}

// Running reports whether a timer or schedule is armed.
func (s *ExpirySweeper) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled sweep when running on a cron schedule.
func (s *ExpirySweeper) NextRun() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return time.Time{}, false
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}, false
	}
	return entries[0].Next, true
}

func (s *ExpirySweeper) safeSweep() {
	defer func() {
		if p := recover(); p != nil {
			s.errorHandler.Report("sweep", s.dir, "Panic in sweep routine", types.RecoverPanic(p), types.ErrorLevelMedium)
		}
	}()
	s.SweepNow()
}

// Expired lists the files in the directory whose period started retention
// or more periods ago, newest first. Files with an unparsable stamp are
// reported and skipped.
func (s *ExpirySweeper) Expired() []RotatedFile {
	if s.retention == 0 {
		return nil
	}

	files, err := ScanRotated(s.dir, s.period, s.ext)
	if err != nil {
		s.errorHandler.Report("sweep", s.dir, "Failed to list log directory", err, types.ErrorLevelLow)
		return nil
	}

	now := s.now()
	if s.location != nil {
		now = now.In(s.location)
	}
	var expired []RotatedFile
	for _, f := range files {
		start, err := s.period.ParseStamp(f.Stamp, now.Location())
		if err != nil {
			s.errorHandler.Report("sweep", f.Path, "Error parsing file stamp", err, types.ErrorLevelLow)
			continue
		}
		if s.period.Age(start, now) >= s.retention {
			expired = append(expired, f)
		}
	}
	return expired
}

// SweepNow deletes every expired file in the directory and returns the
// paths deleted. A file that cannot be deleted is reported and skipped.
func (s *ExpirySweeper) SweepNow() []string {
	var deleted []string
	for _, f := range s.Expired() {
		if err := os.Remove(f.Path); err != nil {
			if !os.IsNotExist(err) {
				s.errorHandler.Report("sweep", f.Path, "Failed to remove expired log file", err, types.ErrorLevelLow)
			}
			continue
		}
		deleted = append(deleted, f.Path)
		if s.onExpired != nil {
			s.onExpired(f.Path)
		}
	}
	return deleted
}
