package ioscan

import "strconv"

// ByteWriter accumulates output bytes in memory. It is used for both full
// rewrites (starting empty) and incremental updates (pre-seeded with the
// original file's bytes via WriteRaw).
type ByteWriter struct {
	buf []byte
}

// NewByteWriter returns an empty writer.
func NewByteWriter() *ByteWriter {
	return &ByteWriter{}
}

// NewByteWriterWithCapacity returns an empty writer with a pre-sized backing
// array, useful when the caller knows roughly how large the output will be.
func NewByteWriterWithCapacity(capacity int) *ByteWriter {
	return &ByteWriter{buf: make([]byte, 0, capacity)}
}

// Pos returns the number of bytes written so far; this doubles as the
// current absolute offset for the next write, which is what the writer uses
// to record xref offsets as it serializes objects.
func (w *ByteWriter) Pos() int64 { return int64(len(w.buf)) }

// WriteRaw appends b verbatim.
func (w *ByteWriter) WriteRaw(b []byte) {
	w.buf = append(w.buf, b...)
}

// WriteByte appends a single byte.
func (w *ByteWriter) WriteByte(b byte) {
	w.buf = append(w.buf, b)
}

// WriteString appends an ASCII string's bytes.
func (w *ByteWriter) WriteString(s string) {
	w.buf = append(w.buf, s...)
}

// WriteInt appends the base-10 ASCII representation of n.
func (w *ByteWriter) WriteInt(n int64) {
	w.buf = strconv.AppendInt(w.buf, n, 10)
}

// WriteUint appends the base-10 ASCII representation of n.
func (w *ByteWriter) WriteUint(n uint64) {
	w.buf = strconv.AppendUint(w.buf, n, 10)
}

// WritePadded appends n's base-10 digits left-padded with '0' to width
// characters. Used for fixed-width xref records and ByteRange placeholders.
func (w *ByteWriter) WritePadded(n int64, width int) {
	s := strconv.FormatInt(n, 10)
	for len(s) < width {
		s = "0" + s
	}
	w.WriteString(s)
}

// Bytes returns the accumulated output. The caller must not mutate it.
func (w *ByteWriter) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written so far.
func (w *ByteWriter) Len() int {
	return len(w.buf)
}
