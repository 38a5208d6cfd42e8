package features

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/intentor/anlog/pkg/types"
)

// RotationState is the position of a rotating sink: the active file, its
// period stamp and its sequence within that period.
type RotationState struct {
	Path     string
	Stamp    string
	Sequence int
	Anchor   time.Time
}

// Namer decides when a rotating sink must switch files and names the files.
//
// Evaluate mutates the namer: each call may advance the sequence, so it must
// be called exactly once per write. A Namer is not safe for concurrent use;
// RotatingFileSink serialises access to it.
type Namer struct {
	dir      string
	period   Period
	maxSize  int64
	ext      string
	location *time.Location

	state RotationState
}

// NamerOption configures a Namer.
type NamerOption func(*Namer)

// WithMaxSize rotates within a period once the active file reaches size
// bytes. Zero or less disables size rotation.
func WithMaxSize(size int64) NamerOption {
	return func(n *Namer) {
		n.maxSize = size
	}
}

// WithExtension sets the file extension (default "txt").
func WithExtension(ext string) NamerOption {
	return func(n *Namer) {
		n.ext = normalizeExtension(ext)
	}
}

// WithLocation stamps files in loc. By default write times keep their own
// location and recovered stamps are parsed in time.Local.
func WithLocation(loc *time.Location) NamerOption {
	return func(n *Namer) {
		n.location = loc
	}
}

// NewNamer creates a namer for dir and recovers its state from the files
// already there. When no file matches, the state starts at now, sequence 1.
//
// Parameters:
//   - dir: Directory holding the rotated files
//   - period: Day or Hour
//   - now: The time used when nothing can be recovered
//   - opts: Size ceiling, extension and location options
//
// Returns:
//   - *Namer: The namer, positioned at the most recent (stamp, sequence)
//   - error: When the period is invalid or the directory cannot be read
//
// Example:
//
//	namer, err := features.NewNamer("/var/log/app", features.Day, time.Now(),
//	    features.WithMaxSize(10<<20))
func NewNamer(dir string, period Period, now time.Time, opts ...NamerOption) (*Namer, error) {
	if !period.Valid() {
		return nil, errors.Wrapf(types.ErrInvalidPeriod, "period %q", period.name)
	}

	n := &Namer{
		dir:    filepath.Clean(dir),
		period: period,
		ext:    DefaultExtension,
	}
	for _, opt := range opts {
		opt(n)
	}

	if err := n.recover(now); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Namer) recover(now time.Time) error {
	now = n.in(now)
	files, err := ScanRotated(n.dir, n.period, n.ext)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		n.state = RotationState{
			Stamp:    n.period.Stamp(now),
			Sequence: 1,
			Anchor:   now,
		}
		n.state.Path = n.path()
		return nil
	}

	latest := files[0]
	anchor, err := n.period.ParseStamp(latest.Stamp, n.location)
	if err != nil {
		return err
	}
	n.state = RotationState{
		Path:     latest.Path,
		Stamp:    latest.Stamp,
		Sequence: latest.Sequence,
		Anchor:   anchor,
	}
	return nil
}

// Evaluate decides whether the write happening at now needs a new file:
//  1. now is in a later period than the anchor: sequence restarts at 1 and
//     the anchor moves to now
//  2. otherwise, the active file exists and has reached the size ceiling:
//     the sequence advances within the period
//  3. otherwise the active file is kept
//
// It returns whether the file changed and the path to write to.
func (n *Namer) Evaluate(now time.Time) (bool, string) {
	now = n.in(now)
	if n.period.Exceeded(n.state.Anchor, now) {
		n.state.Stamp = n.period.Stamp(now)
		n.state.Sequence = 1
		n.state.Anchor = now
		n.state.Path = n.path()
		return true, n.state.Path
	}

	if n.maxSize > 0 {
		if info, err := os.Stat(n.state.Path); err == nil && info.Size() >= n.maxSize {
			n.state.Sequence++
			n.state.Path = n.path()
			return true, n.state.Path
		}
	}

	return false, n.state.Path
}

// CurrentPath returns the active file path.
func (n *Namer) CurrentPath() string {
	return n.state.Path
}

// State returns a copy of the rotation state.
func (n *Namer) State() RotationState {
	return n.state
}

// Dir returns the directory the namer manages.
func (n *Namer) Dir() string {
	return n.dir
}

// Period returns the rotation period.
func (n *Namer) Period() Period {
	return n.period
}

// Extension returns the file extension, without the dot.
func (n *Namer) Extension() string {
	return n.ext
}

func (n *Namer) in(t time.Time) time.Time {
	if n.location == nil {
		return t
	}
	return t.In(n.location)
}

func (n *Namer) path() string {
	return filepath.Join(n.dir, n.period.FileName(n.state.Anchor, n.state.Sequence, n.ext))
}

// ScanRotated lists the files in dir named by period and ext, newest
// (stamp, sequence) first. A missing directory yields no files.
func ScanRotated(dir string, period Period, ext string) ([]RotatedFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "reading log directory")
	}

	pattern := period.Pattern(ext)
	var files []RotatedFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if f, ok := parseRotated(pattern, dir, entry.Name()); ok {
			files = append(files, f)
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].After(files[j])
	})
	return files, nil
}
