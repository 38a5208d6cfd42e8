package formatters

import (
	"time"

	"github.com/intentor/anlog/pkg/entries"
)

// Separators and brackets of the compact format.
const (
	EntrySeparator    = " "
	KeyValueSeparator = "="
	ListItemSeparator = ","
	ObjectOpening     = "{"
	ObjectClosing     = "}"
	ListOpening       = "["
	ListClosing       = "]"
	NewLine           = "\n"
)

const (
	// CallerKey is the key of the caller segment
	CallerKey = "c"
	// UnknownCaller is rendered when the event carries no caller
	UnknownCaller = "unknown"
)

// FormatOptions controls the output format
type FormatOptions struct {
	DateFormat string         // time layout of the leading timestamp
	TimeZone   *time.Location // nil keeps the event's own location
}

// DefaultFormatOptions returns default formatting options
func DefaultFormatOptions() FormatOptions {
	return FormatOptions{
		DateFormat: entries.DefaultDateFormat,
	}
}

// Option configures a formatter.
type Option func(*FormatOptions)

// WithDateFormat sets the timestamp layout.
func WithDateFormat(layout string) Option {
	return func(o *FormatOptions) {
		if layout != "" {
			o.DateFormat = layout
		}
	}
}

// WithTimeZone renders timestamps in loc.
func WithTimeZone(loc *time.Location) Option {
	return func(o *FormatOptions) {
		o.TimeZone = loc
	}
}
