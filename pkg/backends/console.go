package backends

import (
	"bufio"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/intentor/anlog/internal/metrics"
	"github.com/intentor/anlog/pkg/formatters"
	"github.com/intentor/anlog/pkg/types"
)

// Console themes.
const (
	ThemeAuto  = "auto"
	ThemeNone  = "none"
	ThemeColor = "color"
)

// streamTarget appends lines to an io.Writer such as stdout.
type streamTarget struct {
	name   string
	writer *bufio.Writer
	closer io.Closer
}

func newStreamTarget(name string, w io.Writer) *streamTarget {
	t := &streamTarget{name: name, writer: bufio.NewWriter(w)}
	if c, ok := w.(io.Closer); ok && w != os.Stdout && w != os.Stderr {
		t.closer = c
	}
	return t
}

func (t *streamTarget) WriteLine(line string) (int, error) {
	n, err := t.writer.WriteString(line)
	if err == nil {
		err = t.writer.WriteByte('\n')
		if err == nil {
			n++
		}
	}
	if err == nil {
		err = t.writer.Flush()
	}
	return n, err
}

func (t *streamTarget) Path() string {
	return t.name
}

func (t *streamTarget) Close() error {
	err := t.writer.Flush()
	if t.closer != nil {
		if cerr := t.closer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// ConsoleSink writes each event to stdout (or another writer) and flushes.
type ConsoleSink struct {
	*sinkBase

	mu     sync.Mutex
	target *streamTarget
	closed bool
}

// NewConsoleSink creates a sink writing to stdout. With ThemeAuto the themed
// formatter is used only when stdout is a terminal; an explicit
// WithFormatter option takes precedence over theme.
func NewConsoleSink(theme string, opts ...Option) (*ConsoleSink, error) {
	return NewWriterSink(os.Stdout, theme, opts...)
}

// NewWriterSink is NewConsoleSink for any writer. ThemeAuto colours only
// when w is an *os.File attached to a terminal.
func NewWriterSink(w io.Writer, theme string, opts ...Option) (*ConsoleSink, error) {
	if w == nil {
		return nil, errors.New("console sink writer is nil")
	}

	var themed bool
	switch strings.ToLower(strings.TrimSpace(theme)) {
	case "", ThemeAuto:
		if f, ok := w.(*os.File); ok {
			themed = term.IsTerminal(int(f.Fd()))
		}
	case ThemeColor, "default":
		themed = true
	case ThemeNone, "plain":
	default:
		return nil, errors.Errorf("unknown console theme %q", theme)
	}

	var fallback func(...formatters.Option) formatters.Formatter
	if themed {
		fallback = func(fo ...formatters.Option) formatters.Formatter {
			return formatters.NewThemedFormatter(formatters.DefaultTheme, fo...)
		}
	}

	return &ConsoleSink{
		sinkBase: newSinkBase("console", opts, fallback),
		target:   newStreamTarget("stdout", w),
	}, nil
}

// Write renders ev and writes it to the console.
func (s *ConsoleSink) Write(ev types.Event) {
	if !s.Allows(ev.Level) {
		return
	}
	defer s.recoverWrite(s.target.Path())

	line := s.formatter.Format(ev)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.metrics.TrackDropped(metrics.DropClosed)
		return
	}
	s.writeLine(s.target, line)
}

// Close flushes the writer. Stdout and stderr are never closed.
func (s *ConsoleSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.target.Close()
}
