package features

import (
	"time"
)

// Rotator decides the file a rotating sink writes to. Namer implements it.
type Rotator interface {
	// Evaluate is called once per write and returns whether the file changed
	// and the path to write to
	Evaluate(now time.Time) (bool, string)

	// CurrentPath returns the active file path
	CurrentPath() string
}

// Sweeper removes expired files in the background. ExpirySweeper implements it.
type Sweeper interface {
	Start() error
	Stop()
	SweepNow() []string
}

var (
	_ Rotator = (*Namer)(nil)
	_ Sweeper = (*ExpirySweeper)(nil)
)
