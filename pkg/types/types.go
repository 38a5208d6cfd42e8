package types

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/intentor/anlog/pkg/entries"
)

// Level is the severity of a log event. Levels are ordered:
// LevelDebug < LevelInfo < LevelWarn < LevelError.
type Level int

const (
	// LevelDebug is for diagnostic detail
	LevelDebug Level = iota
	// LevelInfo is for normal operational events
	LevelInfo
	// LevelWarn is for unexpected but recoverable conditions
	LevelWarn
	// LevelError is for failures
	LevelError
)

// AllLevels lists every level in ascending order.
var AllLevels = []Level{LevelDebug, LevelInfo, LevelWarn, LevelError}

var levelNames = [...]string{"debug", "info", "warn", "error"}
var levelTags = [...]string{"DBG", "INF", "WRN", "ERR"}
var levelKeys = [...]string{"d", "i", "w", "e"}

// Valid reports whether l is one of the four defined levels.
func (l Level) Valid() bool {
	return l >= LevelDebug && l <= LevelError
}

// String returns the lower-case level name.
func (l Level) String() string {
	if !l.Valid() {
		return "unknown"
	}
	return levelNames[l]
}

// Tag returns the fixed three-letter code rendered between brackets.
func (l Level) Tag() string {
	if !l.Valid() {
		return "UNK"
	}
	return levelTags[l]
}

// Key returns the entry key used for the event message at this level.
func (l Level) Key() string {
	if !l.Valid() {
		return "m"
	}
	return levelKeys[l]
}

// ParseLevel converts a level name ("debug", "INF", "w", ...) into a Level.
//
// Parameters:
//   - name: Full name, three-letter tag or message key, case-insensitive
//
// Returns:
//   - Level: The parsed level
//   - error: ErrInvalidLevel wrapped with the offending name
func ParseLevel(name string) (Level, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, l := range AllLevels {
		if n == levelNames[l] || n == strings.ToLower(levelTags[l]) || n == levelKeys[l] {
			return l, nil
		}
	}
	if n == "warning" {
		return LevelWarn, nil
	}
	return LevelDebug, errors.Wrapf(ErrInvalidLevel, "parse %q", name)
}

// LevelPtr returns a pointer to l, for optional minimum levels.
func LevelPtr(l Level) *Level {
	return &l
}

// Event is one log event as handed to sinks.
type Event struct {
	Time    time.Time
	Level   Level
	Caller  string // empty when caller metadata is unavailable
	Entries []entries.Entry
}

// Sink receives log events. Write must never panic or block on a
// failure; problems are reported through the sink's error handler.
type Sink interface {
	// Write renders and delivers ev, unless ev is below the sink's minimum level
	Write(ev Event)

	// MinimumLevel returns the sink's own minimum level, or nil to inherit
	MinimumLevel() *Level

	// Close releases the sink's resources
	Close() error
}

// LevelGate holds an optional minimum level. The zero value accepts every level.
type LevelGate struct {
	min atomic.Pointer[Level]
}

// SetMinimumLevel sets the minimum level; nil clears it.
func (g *LevelGate) SetMinimumLevel(level *Level) {
	if level == nil {
		g.min.Store(nil)
		return
	}
	l := *level
	g.min.Store(&l)
}

// MinimumLevel returns a copy of the configured minimum level, or nil.
func (g *LevelGate) MinimumLevel() *Level {
	if l := g.min.Load(); l != nil {
		c := *l
		return &c
	}
	return nil
}

// Allows reports whether an event at level passes the gate.
func (g *LevelGate) Allows(level Level) bool {
	l := g.min.Load()
	return l == nil || level >= *l
}
