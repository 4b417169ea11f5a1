// Package ioscan provides the low-level byte reader and writer every other
// package builds on: a bounded Scanner over an immutable buffer, and an
// appending ByteWriter used for both full and incremental saves.
package ioscan

// EOF is the sentinel byte returned by Peek/Advance when the scanner has run
// past the end of the buffer. Scanner is infallible on bounds: callers must
// check for EOF themselves rather than rely on a panic or error return.
const EOF = -1

// IsDelimiter reports whether b is one of the ten PDF delimiter characters.
func IsDelimiter(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	default:
		return false
	}
}

// IsWhitespace reports whether b is one of the six PDF whitespace characters.
func IsWhitespace(b byte) bool {
	switch b {
	case 0x00, '\t', '\n', '\f', '\r', ' ':
		return true
	default:
		return false
	}
}

// Scanner is a bounded cursor over an immutable byte buffer. It never copies
// the buffer and never mutates it.
type Scanner struct {
	buf []byte
	pos int
}

// NewScanner wraps buf for scanning starting at offset 0.
func NewScanner(buf []byte) *Scanner {
	return &Scanner{buf: buf}
}

// NewScannerAt wraps buf for scanning starting at pos.
func NewScannerAt(buf []byte, pos int) *Scanner {
	return &Scanner{buf: buf, pos: pos}
}

// Len returns the total buffer length.
func (s *Scanner) Len() int { return len(s.buf) }

// Pos returns the current cursor position.
func (s *Scanner) Pos() int { return s.pos }

// SeekTo moves the cursor to an absolute position. Negative or
// past-the-end positions clamp to the nearest valid bound.
func (s *Scanner) SeekTo(pos int) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(s.buf) {
		pos = len(s.buf)
	}
	s.pos = pos
}

// AtEnd reports whether the cursor has reached the end of the buffer.
func (s *Scanner) AtEnd() bool { return s.pos >= len(s.buf) }

// Peek returns the byte at the cursor without advancing, or EOF.
func (s *Scanner) Peek() int {
	return s.PeekAt(0)
}

// PeekAt returns the byte offset bytes ahead of the cursor without
// advancing, or EOF if out of bounds.
func (s *Scanner) PeekAt(offset int) int {
	i := s.pos + offset
	if i < 0 || i >= len(s.buf) {
		return EOF
	}
	return int(s.buf[i])
}

// Advance consumes and returns the byte at the cursor, or EOF if at end.
func (s *Scanner) Advance() int {
	b := s.Peek()
	if b != EOF {
		s.pos++
	}
	return b
}

// SkipWhitespace advances past any run of PDF whitespace (and, since comments
// are whitespace-equivalent in PDF syntax, past `%` comment lines too).
func (s *Scanner) SkipWhitespace() {
	for {
		b := s.Peek()
		if b == '%' {
			s.skipComment()
			continue
		}
		if b == EOF || !IsWhitespace(byte(b)) {
			return
		}
		s.pos++
	}
}

func (s *Scanner) skipComment() {
	for {
		b := s.Peek()
		if b == EOF || b == '\n' || b == '\r' {
			return
		}
		s.pos++
	}
}

// MatchLiteral reports whether the bytes at the cursor equal lit, and if so
// consumes them. It does not consume on a mismatch.
func (s *Scanner) MatchLiteral(lit string) bool {
	if s.pos+len(lit) > len(s.buf) {
		return false
	}
	if string(s.buf[s.pos:s.pos+len(lit)]) != lit {
		return false
	}
	s.pos += len(lit)
	return true
}

// PeekLiteral reports whether the bytes at the cursor equal lit, without
// consuming them.
func (s *Scanner) PeekLiteral(lit string) bool {
	if s.pos+len(lit) > len(s.buf) {
		return false
	}
	return string(s.buf[s.pos:s.pos+len(lit)]) == lit
}

// ReadUntilDelimiter consumes and returns bytes up to (not including) the
// next PDF delimiter or whitespace byte, or the end of the buffer.
func (s *Scanner) ReadUntilDelimiter() []byte {
	start := s.pos
	for {
		b := s.Peek()
		if b == EOF || IsDelimiter(byte(b)) || IsWhitespace(byte(b)) {
			break
		}
		s.pos++
	}
	return s.buf[start:s.pos]
}

// ReadDecimal consumes a run of ASCII digits (optionally signed) and returns
// its integer value. ok is false if no digits were present, in which case
// the cursor is not advanced.
func (s *Scanner) ReadDecimal() (val int64, ok bool) {
	start := s.pos
	neg := false
	if s.Peek() == '-' {
		neg = true
		s.pos++
	} else if s.Peek() == '+' {
		s.pos++
	}
	digitsStart := s.pos
	for {
		b := s.Peek()
		if b < '0' || b > '9' {
			break
		}
		val = val*10 + int64(b-'0')
		s.pos++
	}
	if s.pos == digitsStart {
		s.pos = start
		return 0, false
	}
	if neg {
		val = -val
	}
	return val, true
}

// ReadReal consumes a PDF real number (optionally signed, with an optional
// fractional part and no exponent) and returns its float64 value.
func (s *Scanner) ReadReal() (val float64, ok bool) {
	start := s.pos
	neg := false
	if s.Peek() == '-' {
		neg = true
		s.pos++
	} else if s.Peek() == '+' {
		s.pos++
	}
	intStart := s.pos
	for {
		b := s.Peek()
		if b < '0' || b > '9' {
			break
		}
		s.pos++
	}
	frac := 0.0
	fracScale := 1.0
	haveFrac := false
	if s.Peek() == '.' {
		haveFrac = true
		s.pos++
		for {
			b := s.Peek()
			if b < '0' || b > '9' {
				break
			}
			fracScale /= 10
			frac += float64(b-'0') * fracScale
			s.pos++
		}
	}
	if s.pos == intStart && !haveFrac {
		s.pos = start
		return 0, false
	}
	// Re-derive the integer portion textually rather than tracking a running
	// float through the first loop, since real numbers this long never occur
	// in practice but a naive running-float would still overflow silently.
	dot := s.findDotPos(intStart)
	intEnd := dot
	if dot < 0 {
		intEnd = s.pos
	}
	intPart := 0.0
	for i := intStart; i < intEnd; i++ {
		intPart = intPart*10 + float64(s.buf[i]-'0')
	}
	val = intPart + frac
	if neg {
		val = -val
	}
	return val, true
}

func (s *Scanner) findDotPos(from int) int {
	for i := from; i < s.pos; i++ {
		if s.buf[i] == '.' {
			return i
		}
	}
	return -1
}

// ReadHexDigit consumes and returns a single hex digit value (0-15), or ok
// false if the current byte is not a hex digit.
func (s *Scanner) ReadHexDigit() (val int, ok bool) {
	b := s.Peek()
	switch {
	case b >= '0' && b <= '9':
		val = b - '0'
	case b >= 'a' && b <= 'f':
		val = b - 'a' + 10
	case b >= 'A' && b <= 'F':
		val = b - 'A' + 10
	default:
		return 0, false
	}
	s.pos++
	return val, true
}

// Slice returns the raw bytes in [from, to) without copying. Out-of-range
// bounds clamp to the buffer's extent.
func (s *Scanner) Slice(from, to int) []byte {
	if from < 0 {
		from = 0
	}
	if to > len(s.buf) {
		to = len(s.buf)
	}
	if from >= to {
		return nil
	}
	return s.buf[from:to]
}

// LocateBackward finds the last occurrence of needle at or before the end of
// the buffer, searching only the final window bytes (or the whole buffer if
// window <= 0). Returns -1 if not found. Used by the xref parser to locate
// the trailing `startxref` keyword without scanning the whole file.
func LocateBackward(buf []byte, needle []byte, window int) int {
	start := 0
	if window > 0 && len(buf)-window > 0 {
		start = len(buf) - window
	}
	searchSpace := buf[start:]
	idx := lastIndex(searchSpace, needle)
	if idx < 0 {
		return -1
	}
	return start + idx
}

func lastIndex(haystack, needle []byte) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
	for i := len(haystack) - len(needle); i >= 0; i-- {
		if string(haystack[i:i+len(needle)]) == string(needle) {
			return i
		}
	}
	return -1
}
