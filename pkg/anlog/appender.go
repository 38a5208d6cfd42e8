package anlog

import (
	"fmt"

	"github.com/intentor/anlog/pkg/entries"
	"github.com/intentor/anlog/pkg/types"
)

// Appender accumulates the entries of one event. It is finished by one of
// the level methods and must not be used afterwards. An Appender is not
// safe for concurrent use.
type Appender struct {
	logger  *Logger
	caller  string
	entries []entries.Entry
}

func (l *Logger) newAppender(caller string) *Appender {
	return &Appender{logger: l, caller: caller}
}

// Caller returns the captured <fileStem>.<function>:<line> tag.
func (a *Appender) Caller() string {
	return a.caller
}

// Append adds value under key. Structs, maps, slices and pointers are
// flattened with the logger's builder.
func (a *Appender) Append(key string, value interface{}) *Appender {
	a.entries = append(a.entries, a.logger.builder.FromValue(key, value))
	return a
}

// AppendEntry adds a prebuilt entry.
func (a *Appender) AppendEntry(e entries.Entry) *Appender {
	if e != nil {
		a.entries = append(a.entries, e)
	}
	return a
}

// Entries returns the entries appended so far.
func (a *Appender) Entries() []entries.Entry {
	return a.entries
}

// Debug finishes the event at debug level.
func (a *Appender) Debug(message string, args ...interface{}) {
	a.finish(types.LevelDebug, message, args, nil)
}

// Info finishes the event at info level.
func (a *Appender) Info(message string, args ...interface{}) {
	a.finish(types.LevelInfo, message, args, nil)
}

// Warn finishes the event at warning level.
func (a *Appender) Warn(message string, args ...interface{}) {
	a.finish(types.LevelWarn, message, args, nil)
}

// Error finishes the event at error level.
func (a *Appender) Error(message string, args ...interface{}) {
	a.finish(types.LevelError, message, args, nil)
}

// ErrorWith finishes the event at error level with err rendered as an
// exception trace after every other entry.
func (a *Appender) ErrorWith(err error, message string, args ...interface{}) {
	a.finish(types.LevelError, message, args, err)
}

// finish appends the message under the level key and the exception, then
// dispatches. Events no sink accepts are discarded before rendering.
func (a *Appender) finish(level types.Level, message string, args []interface{}, err error) {
	if !a.logger.Enabled(level) {
		return
	}

	list := a.entries
	if message != "" {
		if len(args) > 0 {
			message = fmt.Sprintf(message, args...)
		}
		list = append(list, entries.String(level.Key(), message))
	}
	if err != nil {
		list = append(list, entries.NewException(err))
	}

	a.logger.Dispatch(types.Event{
		Level:   level,
		Caller:  a.caller,
		Entries: list,
	})
}
