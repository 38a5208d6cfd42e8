package formatters

import (
	"sync"

	"github.com/intentor/anlog/pkg/entries"
	"github.com/intentor/anlog/pkg/types"
)

// CompactFormatter renders events as
//
//	<timestamp> [<LVL>] c=<caller> <key>=<value> ...
//
// Objects render as {child child}, lists as [item,item] and an exception
// trace breaks the line, replacing the separator before it with a newline.
type CompactFormatter struct {
	options FormatOptions
	writers sync.Pool
}

// NewCompactFormatter creates a formatter producing undecorated text.
func NewCompactFormatter(opts ...Option) *CompactFormatter {
	return newCompactFormatter(func() DataWriter { return NewPlainWriter() }, opts)
}

// NewThemedFormatter creates a formatter that colours segments with theme.
func NewThemedFormatter(theme Theme, opts ...Option) *CompactFormatter {
	return newCompactFormatter(func() DataWriter { return NewThemedWriter(theme) }, opts)
}

func newCompactFormatter(newWriter func() DataWriter, opts []Option) *CompactFormatter {
	f := &CompactFormatter{options: DefaultFormatOptions()}
	for _, opt := range opts {
		opt(&f.options)
	}
	f.writers.New = func() interface{} { return newWriter() }
	return f
}

// Options returns the formatter's options.
func (f *CompactFormatter) Options() FormatOptions {
	return f.options
}

// Format renders ev into a single string.
func (f *CompactFormatter) Format(ev types.Event) string {
	w := f.writers.Get().(DataWriter)
	w.Reset()
	f.Render(w, ev)
	line := w.String()
	f.writers.Put(w)
	return line
}

// Render writes ev to w.
func (f *CompactFormatter) Render(w DataWriter, ev types.Event) {
	ts := ev.Time
	if f.options.TimeZone != nil {
		ts = ts.In(f.options.TimeZone)
	}
	w.WriteDate(ts.Format(f.options.DateFormat))
	w.WriteSeparator(EntrySeparator)

	w.WriteLevel(ev.Level, ListOpening+ev.Level.Tag()+ListClosing)
	w.WriteSeparator(EntrySeparator)

	caller := ev.Caller
	if caller == "" {
		caller = UnknownCaller
	}
	w.WriteKey(CallerKey)
	w.WriteInvariant(KeyValueSeparator)
	w.WriteValue(caller)
	w.WriteSeparator(EntrySeparator)

	for _, e := range ev.Entries {
		f.writeEntry(w, e)
		w.WriteSeparator(EntrySeparator)
	}
	w.TrimSeparator()
}

// RenderEntry writes a single entry to w, as it appears inside a line.
func (f *CompactFormatter) RenderEntry(w DataWriter, e entries.Entry) {
	f.writeEntry(w, e)
}

func (f *CompactFormatter) writeEntry(w DataWriter, entry entries.Entry) {
	switch e := entry.(type) {
	case entries.Scalar:
		writeKey(w, e.Name)
		w.WriteValue(e.Value)
	case entries.Object:
		writeKey(w, e.Name)
		w.WriteInvariant(ObjectOpening)
		for _, child := range e.Children {
			f.writeEntry(w, child)
			w.WriteSeparator(EntrySeparator)
		}
		w.TrimSeparator()
		w.WriteInvariant(ObjectClosing)
	case entries.List:
		writeKey(w, e.Name)
		w.WriteInvariant(ListOpening)
		for _, item := range e.Items {
			f.writeEntry(w, item)
			w.WriteSeparator(ListItemSeparator)
		}
		w.TrimSeparator()
		w.WriteInvariant(ListClosing)
	case entries.ExceptionTrace:
		w.TrimSeparator()
		w.WriteInvariant(NewLine)
		w.WriteException(e.Details)
	default:
		w.WriteValue(entries.NullValue)
	}
}

func writeKey(w DataWriter, key string) {
	if key == "" {
		return
	}
	w.WriteKey(key)
	w.WriteInvariant(KeyValueSeparator)
}
