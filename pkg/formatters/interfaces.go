package formatters

import (
	"github.com/intentor/anlog/pkg/types"
)

// Formatter turns an event into one rendered line, without the trailing
// newline. Implementations must be safe for concurrent use.
type Formatter interface {
	Format(ev types.Event) string
}

// DataWriter receives the segments of a line as the compact algorithm emits
// them. Implementations decide how each kind of segment is decorated; the
// separators and brackets are always written through WriteInvariant or
// WriteSeparator so decoration never changes the structure.
//
// A DataWriter is used by one goroutine at a time.
type DataWriter interface {
	// WriteDate writes the formatted timestamp
	WriteDate(s string)

	// WriteLevel writes the bracketed level tag
	WriteLevel(level types.Level, s string)

	// WriteKey writes an entry key
	WriteKey(s string)

	// WriteValue writes an entry value
	WriteValue(s string)

	// WriteException writes exception details
	WriteException(s string)

	// WriteInvariant writes structural text as-is
	WriteInvariant(s string)

	// WriteSeparator writes a separator that TrimSeparator may later remove
	WriteSeparator(sep string)

	// TrimSeparator removes the separator written last, if nothing has been
	// written after it
	TrimSeparator()

	// String returns the text written so far
	String() string

	// Reset empties the writer for reuse
	Reset()
}
