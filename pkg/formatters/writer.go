package formatters

import (
	"github.com/intentor/anlog/pkg/types"
)

// lineBuffer accumulates a line and remembers where the last separator
// started, so exactly that separator can be removed again.
type lineBuffer struct {
	buf     []byte
	sepMark int
}

func newLineBuffer() lineBuffer {
	return lineBuffer{buf: make([]byte, 0, 256), sepMark: -1}
}

func (b *lineBuffer) write(s string) {
	b.buf = append(b.buf, s...)
	b.sepMark = -1
}

func (b *lineBuffer) WriteInvariant(s string) {
	b.write(s)
}

func (b *lineBuffer) WriteSeparator(sep string) {
	mark := len(b.buf)
	b.buf = append(b.buf, sep...)
	b.sepMark = mark
}

func (b *lineBuffer) TrimSeparator() {
	if b.sepMark < 0 {
		return
	}
	b.buf = b.buf[:b.sepMark]
	b.sepMark = -1
}

func (b *lineBuffer) String() string {
	return string(b.buf)
}

func (b *lineBuffer) Reset() {
	b.buf = b.buf[:0]
	b.sepMark = -1
}

// PlainWriter writes every segment undecorated.
type PlainWriter struct {
	lineBuffer
}

// NewPlainWriter creates an empty PlainWriter.
func NewPlainWriter() *PlainWriter {
	return &PlainWriter{lineBuffer: newLineBuffer()}
}

func (w *PlainWriter) WriteDate(s string)                 { w.write(s) }
func (w *PlainWriter) WriteLevel(_ types.Level, s string) { w.write(s) }
func (w *PlainWriter) WriteKey(s string)                  { w.write(s) }
func (w *PlainWriter) WriteValue(s string)                { w.write(s) }
func (w *PlainWriter) WriteException(s string)            { w.write(s) }
