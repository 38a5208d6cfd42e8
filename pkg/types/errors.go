package types

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

var (
	// ErrSinkClosed is returned by operations on a closed sink
	ErrSinkClosed = errors.New("sink closed")
	// ErrInvalidPeriod is returned for an unknown rotation period
	ErrInvalidPeriod = errors.New("invalid rotation period")
	// ErrInvalidPattern is returned when a file name pattern cannot be used
	ErrInvalidPattern = errors.New("invalid file name pattern")
	// ErrInvalidLevel is returned by ParseLevel
	ErrInvalidLevel = errors.New("invalid level")
)

// ErrorLevel is the severity of a failure inside the pipeline itself.
type ErrorLevel int

const (
	// ErrorLevelLow is for housekeeping failures that are swallowed
	ErrorLevelLow ErrorLevel = iota
	// ErrorLevelMedium is for transient I/O failures and dropped events
	ErrorLevelMedium
	// ErrorLevelHigh is for failures that lose the sink's output
	ErrorLevelHigh
)

// LogError represents an error that occurred inside the logging pipeline
type LogError struct {
	Operation   string     // The operation that failed
	Destination string     // The sink or path involved
	Message     string     // Human readable error message
	Err         error      // The underlying error
	Level       ErrorLevel // The severity level of the error
	Timestamp   time.Time  // When the error occurred
}

// Error implements the error interface
func (e LogError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

// Unwrap returns the underlying error
func (e LogError) Unwrap() error {
	return e.Err
}

// ErrorHandler receives pipeline failures. Handlers are called from
// writer goroutines and must be safe for concurrent use.
type ErrorHandler func(err LogError)

// SilentErrorHandler discards all errors (used in tests)
var SilentErrorHandler ErrorHandler = func(LogError) {}

// NewStderrErrorHandler returns a handler that prints to stderr, allowing
// at most burst messages at once and one message per second after that.
func NewStderrErrorHandler(burst int) ErrorHandler {
	limiter := rate.NewLimiter(rate.Every(time.Second), burst)
	return func(e LogError) {
		if !limiter.Allow() {
			return
		}
		dest := e.Destination
		if dest == "" {
			dest = "-"
		}
		if e.Err != nil {
			fmt.Fprintf(os.Stderr, "anlog: [%s] %s: %s: %v\n", e.Operation, dest, e.Message, e.Err)
			return
		}
		fmt.Fprintf(os.Stderr, "anlog: [%s] %s: %s\n", e.Operation, dest, e.Message)
	}
}

// DefaultErrorHandler returns the handler used when none is configured:
// silent under go test, rate-limited stderr otherwise.
func DefaultErrorHandler() ErrorHandler {
	if isTestMode() {
		return SilentErrorHandler
	}
	return NewStderrErrorHandler(10)
}

// Report builds a LogError and hands it to h. A nil handler is ignored.
func (h ErrorHandler) Report(op, dest, msg string, err error, level ErrorLevel) {
	if h == nil {
		return
	}
	h(LogError{
		Operation:   op,
		Destination: dest,
		Message:     msg,
		Err:         err,
		Level:       level,
		Timestamp:   time.Now(),
	})
}

// RecoverPanic converts a recovered panic value into an error.
func RecoverPanic(p interface{}) error {
	if err, ok := p.(error); ok {
		return errors.Wrap(err, "panic")
	}
	return errors.Errorf("panic: %v", p)
}

// isTestMode detects if we're running under go test
func isTestMode() bool {
	for _, arg := range os.Args {
		if strings.HasPrefix(arg, "-test.") {
			return true
		}
	}

	if exe, err := os.Executable(); err == nil {
		if strings.HasSuffix(filepath.Base(exe), ".test") {
			return true
		}
	}

	return false
}
