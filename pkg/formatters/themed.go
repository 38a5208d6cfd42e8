package formatters

import (
	"github.com/intentor/anlog/pkg/types"
)

// ResetColor ends any active ANSI styling.
const ResetColor = "\x1b[0m"

// Theme holds the ANSI control sequences used for each segment kind.
type Theme struct {
	Default   string
	Debug     string
	Info      string
	Warn      string
	Error     string
	Key       string
	Value     string
	Exception string
}

// DefaultTheme is a 256-colour palette for dark terminals.
var DefaultTheme = Theme{
	Default:   "\x1b[38;5;250m",
	Debug:     "\x1b[38;5;014m",
	Info:      "\x1b[38;5;035m",
	Warn:      "\x1b[38;5;228m",
	Error:     "\x1b[38;5;196m",
	Key:       "\x1b[1m\x1b[38;5;038m",
	Value:     "\x1b[38;5;158m",
	Exception: "\x1b[38;5;196m",
}

func (t Theme) level(l types.Level) string {
	switch l {
	case types.LevelDebug:
		return t.Debug
	case types.LevelInfo:
		return t.Info
	case types.LevelWarn:
		return t.Warn
	case types.LevelError:
		return t.Error
	default:
		return t.Default
	}
}

// ThemedWriter wraps segments in the theme's colours. Separators and
// brackets are written without colour.
type ThemedWriter struct {
	lineBuffer
	theme Theme
}

// NewThemedWriter creates an empty ThemedWriter.
func NewThemedWriter(theme Theme) *ThemedWriter {
	return &ThemedWriter{lineBuffer: newLineBuffer(), theme: theme}
}

func (w *ThemedWriter) colored(color, s string) {
	w.write(color)
	w.write(s)
	w.write(ResetColor)
}

func (w *ThemedWriter) WriteDate(s string) {
	w.colored(w.theme.Default, s)
}

func (w *ThemedWriter) WriteLevel(level types.Level, s string) {
	w.colored(w.theme.level(level), s)
}

// WriteKey colours non-empty keys only.
func (w *ThemedWriter) WriteKey(s string) {
	if s == "" {
		w.write(s)
		return
	}
	w.colored(w.theme.Key, s)
}

// WriteValue colours non-empty values only.
func (w *ThemedWriter) WriteValue(s string) {
	if s == "" {
		w.write(s)
		return
	}
	w.colored(w.theme.Value, s)
}

func (w *ThemedWriter) WriteException(s string) {
	w.colored(w.theme.Exception, s)
}
