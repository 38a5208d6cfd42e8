package backends

import (
	"bufio"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"

	"github.com/intentor/anlog/internal/metrics"
	"github.com/intentor/anlog/pkg/types"
)

// DefaultBufferSize for file operations
const DefaultBufferSize = 32 * 1024

// fileTarget appends lines to one file path. Before every write it checks
// that the directory and the file still exist, and reopens the file in
// append mode when either was removed. A fileTarget is not safe for
// concurrent use; its sink holds the lock.
type fileTarget struct {
	path   string
	file   *os.File
	writer *bufio.Writer
	lock   *flock.Flock
	size   int64
}

func newFileTarget(path string) *fileTarget {
	return &fileTarget{path: filepath.Clean(path)}
}

// ensureOpen makes sure the handle refers to the file currently at path.
func (t *fileTarget) ensureOpen() error {
	// #nosec G301 - log directories need to be accessible by other processes
	if err := os.MkdirAll(filepath.Dir(t.path), 0755); err != nil {
		return errors.Wrap(err, "create directory")
	}

	if t.file != nil {
		onDisk, err := os.Stat(t.path)
		if err == nil {
			if open, ferr := t.file.Stat(); ferr == nil && os.SameFile(onDisk, open) {
				return nil
			}
		}
		t.release()
	}

	file, err := os.OpenFile(t.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644) // #nosec G302 - log files need to be readable
	if err != nil {
		return errors.Wrap(err, "open file")
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close() // Best effort close on error path
		return errors.Wrap(err, "stat file")
	}

	t.file = file
	t.size = info.Size()
	if t.writer == nil {
		t.writer = bufio.NewWriterSize(file, DefaultBufferSize)
	} else {
		t.writer.Reset(file)
	}
	t.lock = flock.New(t.path)
	return nil
}

// release drops the handle without flushing. Writes flush before
// returning, so nothing is buffered between writes.
func (t *fileTarget) release() {
	if t.lock != nil {
		_ = t.lock.Close()
		t.lock = nil
	}
	if t.file != nil {
		_ = t.file.Close()
		t.file = nil
	}
	t.size = 0
}

// WriteLine appends line and a newline under the file lock, then flushes.
func (t *fileTarget) WriteLine(line string) (int, error) {
	if err := t.ensureOpen(); err != nil {
		return 0, err
	}

	if err := t.lock.Lock(); err != nil {
		return 0, errors.Wrap(err, "acquire lock")
	}
	defer func() {
		_ = t.lock.Unlock() // Best effort unlock
	}()

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
	t.size += int64(n)
	if err != nil {
		t.writer.Reset(t.file)
		return n, errors.Wrap(err, "write line")
	}
	return n, nil
}

// Path returns the file path.
func (t *fileTarget) Path() string {
	return t.path
}

// Size returns the bytes in the file as last seen by this target.
func (t *fileTarget) Size() int64 {
	return t.size
}

// Close flushes and closes the file.
func (t *fileTarget) Close() error {
	var errs []error

	if t.writer != nil && t.file != nil {
		if err := t.writer.Flush(); err != nil {
			errs = append(errs, errors.Wrap(err, "flush"))
		}
	}
	if t.lock != nil {
		if err := t.lock.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "unlock"))
		}
		t.lock = nil
	}
	if t.file != nil {
		if err := t.file.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "close file"))
		}
		t.file = nil
	}

	if len(errs) > 0 {
		return errors.Errorf("close errors: %v", errs)
	}
	return nil
}

// FileSink writes each event to one file synchronously: the line is
// flushed before Write returns. The file and its directory are recreated
// if they disappear between writes.
type FileSink struct {
	*sinkBase

	mu     sync.Mutex
	target *fileTarget
	closed bool
}

// NewFileSink creates a sink appending to path. The directory is created
// up front so an unusable path fails here rather than on the first write.
//
// Parameters:
//   - path: The log file path
//   - opts: Name, formatter, minimum level, error handler and metrics options
//
// Returns:
//   - *FileSink: The sink
//   - error: If the directory or file cannot be created
//
// Example:
//
//	sink, err := backends.NewFileSink("/var/log/app.log",
//	    backends.WithMinimumLevel(types.LevelPtr(types.LevelInfo)))
func NewFileSink(path string, opts ...Option) (*FileSink, error) {
	if path == "" {
		return nil, errors.New("file sink path is empty")
	}
	s := &FileSink{
		sinkBase: newSinkBase("file", opts, nil),
		target:   newFileTarget(path),
	}
	if err := s.target.ensureOpen(); err != nil {
		return nil, errors.Wrapf(err, "file sink %s", path)
	}
	return s, nil
}

// Write renders ev and appends it to the file.
func (s *FileSink) Write(ev types.Event) {
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

// Path returns the file path.
func (s *FileSink) Path() string {
	return s.target.path
}

// Close closes the file. Later writes are dropped.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.target.Close()
}
