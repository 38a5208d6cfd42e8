package backends

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/intentor/anlog/pkg/entries"
	"github.com/intentor/anlog/pkg/formatters"
	"github.com/intentor/anlog/pkg/types"
)

var testTime = time.Date(2018, 5, 6, 0, 0, 0, 0, time.Local)

func event(level types.Level, at time.Time, kv ...string) types.Event {
	ev := types.Event{Time: at, Level: level}
	for i := 0; i+1 < len(kv); i += 2 {
		ev.Entries = append(ev.Entries, entries.String(kv[i], kv[i+1]))
	}
	return ev
}

func render(ev types.Event) string {
	return formatters.NewCompactFormatter().Format(ev)
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// recordingSink keeps every event it is given.
type recordingSink struct {
	types.LevelGate

	mu     sync.Mutex
	events []types.Event
	closes int
	block  chan struct{}
	panics bool
}

func (r *recordingSink) Write(ev types.Event) {
	if !r.Allows(ev.Level) {
		return
	}
	if r.block != nil {
		<-r.block
	}
	if r.panics && len(ev.Entries) > 0 {
		if s, ok := ev.Entries[0].(entries.Scalar); ok && s.Value == "boom" {
			panic("sink exploded")
		}
	}
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recordingSink) Close() error {
	r.mu.Lock()
	r.closes++
	r.mu.Unlock()
	return nil
}

func (r *recordingSink) Events() []types.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.Event(nil), r.events...)
}

func (r *recordingSink) Sequence(t *testing.T) []int {
	t.Helper()
	var seq []int
	for _, ev := range r.Events() {
		s := ev.Entries[0].(entries.Scalar)
		n, err := strconv.Atoi(s.Value)
		require.NoError(t, err)
		seq = append(seq, n)
	}
	return seq
}

// panicFormatter fails every render.
type panicFormatter struct{}

func (panicFormatter) Format(types.Event) string {
	panic("render failed")
}

// errorRecorder collects reported pipeline errors.
type errorRecorder struct {
	mu     sync.Mutex
	errors []types.LogError
}

func (e *errorRecorder) Handle(err types.LogError) {
	e.mu.Lock()
	e.errors = append(e.errors, err)
	e.mu.Unlock()
}

func (e *errorRecorder) All() []types.LogError {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]types.LogError(nil), e.errors...)
}
