package anlog

import (
	"sync"
	"time"

	"github.com/intentor/anlog/pkg/types"
)

var testTime = time.Date(2018, 5, 6, 10, 30, 0, 0, time.Local)

func fixedClock() time.Time { return testTime }

// memorySink records events it accepts.
type memorySink struct {
	types.LevelGate

	mu     sync.Mutex
	events []types.Event
	closed int
	delay  time.Duration
	panics bool
}

func newMemorySink(floor *types.Level) *memorySink {
	s := &memorySink{}
	s.SetMinimumLevel(floor)
	return s
}

func (m *memorySink) Write(ev types.Event) {
	if m.panics {
		panic("sink failed")
	}
	m.mu.Lock()
	m.events = append(m.events, ev)
	m.mu.Unlock()
}

func (m *memorySink) Close() error {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	m.closed++
	m.mu.Unlock()
	return nil
}

func (m *memorySink) Events() []types.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.Event(nil), m.events...)
}

func (m *memorySink) Closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
