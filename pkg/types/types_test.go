package types

import (
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelNames(t *testing.T) {
	tests := []struct {
		level Level
		name  string
		tag   string
		key   string
	}{
		{LevelDebug, "debug", "DBG", "d"},
		{LevelInfo, "info", "INF", "i"},
		{LevelWarn, "warn", "WRN", "w"},
		{LevelError, "error", "ERR", "e"},
		{Level(9), "unknown", "UNK", "m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.level.String())
			assert.Equal(t, tt.tag, tt.level.Tag())
			assert.Equal(t, tt.key, tt.level.Key())
		})
	}
}

func TestLevelOrder(t *testing.T) {
	assert.Less(t, LevelDebug, LevelInfo)
	assert.Less(t, LevelInfo, LevelWarn)
	assert.Less(t, LevelWarn, LevelError)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"debug", LevelDebug},
		{"DBG", LevelDebug},
		{"d", LevelDebug},
		{" Info ", LevelInfo},
		{"inf", LevelInfo},
		{"WARN", LevelWarn},
		{"warning", LevelWarn},
		{"w", LevelWarn},
		{"Error", LevelError},
		{"ERR", LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "trace", "fatal", "x"} {
		_, err := ParseLevel(bad)
		assert.ErrorIs(t, err, ErrInvalidLevel, bad)
	}
}

func TestLevelGate(t *testing.T) {
	var g LevelGate
	assert.Nil(t, g.MinimumLevel())
	for _, l := range AllLevels {
		assert.True(t, g.Allows(l), "the zero gate accepts %s", l)
	}

	floor := LevelWarn
	g.SetMinimumLevel(&floor)
	floor = LevelDebug
	assert.Equal(t, LevelWarn, *g.MinimumLevel(), "the gate keeps its own copy")
	assert.False(t, g.Allows(LevelInfo))
	assert.True(t, g.Allows(LevelWarn))
	assert.True(t, g.Allows(LevelError))

	g.SetMinimumLevel(nil)
	assert.True(t, g.Allows(LevelDebug))
}

func TestLevelGateConcurrentUse(t *testing.T) {
	var g LevelGate
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				g.SetMinimumLevel(LevelPtr(AllLevels[(i+j)%len(AllLevels)]))
				g.Allows(LevelInfo)
			}
		}(i)
	}
	wg.Wait()
	assert.NotNil(t, g.MinimumLevel())
}

func TestErrorHandlerReport(t *testing.T) {
	var got []LogError
	var h ErrorHandler = func(e LogError) { got = append(got, e) }

	h.Report("write", "/tmp/app.log", "Failed to write log line", io.ErrShortWrite, ErrorLevelMedium)

	require.Len(t, got, 1)
	e := got[0]
	assert.Equal(t, "write", e.Operation)
	assert.Equal(t, "/tmp/app.log", e.Destination)
	assert.Equal(t, ErrorLevelMedium, e.Level)
	assert.False(t, e.Timestamp.IsZero())
	assert.ErrorIs(t, e, io.ErrShortWrite)
	assert.Equal(t, "Failed to write log line: short write", e.Error())

	var none ErrorHandler
	assert.NotPanics(t, func() {
		none.Report("write", "", "ignored", nil, ErrorLevelLow)
	})
}

func TestRecoverPanic(t *testing.T) {
	err := RecoverPanic(io.EOF)
	assert.ErrorIs(t, err, io.EOF)

	err = RecoverPanic("boom")
	assert.EqualError(t, err, "panic: boom")
}

func TestDefaultErrorHandlerIsSilentUnderTest(t *testing.T) {
	assert.True(t, isTestMode())
	assert.NotPanics(t, func() {
		DefaultErrorHandler().Report("write", "", "quiet", nil, ErrorLevelHigh)
	})
}
