package parser

import (
	"fmt"

	"github.com/benedoc-inc/pdfcore/ioscan"
	"github.com/benedoc-inc/pdfcore/types"
)

// ParseValue parses one PDF syntactic value starting at the scanner's
// current position (after skipping leading whitespace/comments), and
// advances the scanner past it. It recognizes indirect references (`N G R`)
// by look-ahead on integer-integer-R sequences, and indirect object
// definitions are left to ParseIndirectObjectHeader and
// ParseIndirectObjectBody.
func ParseValue(s *ioscan.Scanner) (types.Value, error) {
	s.SkipWhitespace()
	b := s.Peek()
	switch {
	case b == ioscan.EOF:
		return types.Value{}, fmt.Errorf("parser: unexpected end of input")
	case b == '/':
		return parseName(s), nil
	case b == '(':
		return parseLiteralString(s)
	case b == '<':
		if s.PeekAt(1) == '<' {
			return parseDictOrStream(s)
		}
		return parseHexString(s)
	case b == '[':
		return parseArray(s)
	case b == 't' || b == 'f':
		return parseKeywordBool(s)
	case b == 'n':
		return parseKeywordNull(s)
	case b == '+' || b == '-' || b == '.' || (b >= '0' && b <= '9'):
		return parseNumberOrRef(s)
	default:
		return types.Value{}, fmt.Errorf("parser: unexpected byte 0x%02x at offset %d", b, s.Pos())
	}
}

func parseName(s *ioscan.Scanner) types.Value {
	s.Advance() // '/'
	raw := s.ReadUntilDelimiter()
	decoded := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] == '#' && i+2 < len(raw) {
			hi, ok1 := hexVal(raw[i+1])
			lo, ok2 := hexVal(raw[i+2])
			if ok1 && ok2 {
				decoded = append(decoded, byte(hi<<4|lo))
				i += 2
				continue
			}
		}
		decoded = append(decoded, raw[i])
	}
	return types.Name(string(decoded))
}

func hexVal(b byte) (int, bool) {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0'), true
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10, true
	case b >= 'A' && b <= 'F':
		return int(b-'A') + 10, true
	default:
		return 0, false
	}
}

func parseLiteralString(s *ioscan.Scanner) (types.Value, error) {
	s.Advance() // '('
	var out []byte
	depth := 1
	for {
		b := s.Advance()
		if b == ioscan.EOF {
			return types.Value{}, fmt.Errorf("parser: unterminated literal string")
		}
		switch b {
		case '(':
			depth++
			out = append(out, '(')
		case ')':
			depth--
			if depth == 0 {
				return types.LiteralString(out), nil
			}
			out = append(out, ')')
		case '\\':
			esc := s.Advance()
			switch esc {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '(', ')', '\\':
				out = append(out, byte(esc))
			case '\r':
				if s.Peek() == '\n' {
					s.Advance()
				}
				// line continuation: no byte emitted
			case '\n':
				// line continuation: no byte emitted
			default:
				if esc >= '0' && esc <= '7' {
					val := int(esc - '0')
					for i := 0; i < 2; i++ {
						p := s.Peek()
						if p < '0' || p > '7' {
							break
						}
						val = val*8 + int(p-'0')
						s.Advance()
					}
					out = append(out, byte(val))
				} else if esc != ioscan.EOF {
					out = append(out, byte(esc))
				}
			}
		default:
			out = append(out, byte(b))
		}
	}
}

func parseHexString(s *ioscan.Scanner) (types.Value, error) {
	s.Advance() // '<'
	var out []byte
	var hi int
	haveHi := false
	for {
		s.SkipWhitespace()
		if s.Peek() == '>' {
			s.Advance()
			if haveHi {
				out = append(out, byte(hi<<4))
			}
			return types.HexString(out), nil
		}
		v, ok := s.ReadHexDigit()
		if !ok {
			return types.Value{}, fmt.Errorf("parser: invalid hex string byte at offset %d", s.Pos())
		}
		if !haveHi {
			hi = v
			haveHi = true
		} else {
			out = append(out, byte(hi<<4|v))
			haveHi = false
		}
	}
}

func parseArray(s *ioscan.Scanner) (types.Value, error) {
	s.Advance() // '['
	var items []types.Value
	for {
		s.SkipWhitespace()
		if s.Peek() == ']' {
			s.Advance()
			return types.Array(items), nil
		}
		if s.Peek() == ioscan.EOF {
			return types.Value{}, fmt.Errorf("parser: unterminated array")
		}
		v, err := ParseValue(s)
		if err != nil {
			return types.Value{}, err
		}
		items = append(items, v)
	}
}

func parseDictOrStream(s *ioscan.Scanner) (types.Value, error) {
	d, err := parseDict(s)
	if err != nil {
		return types.Value{}, err
	}
	save := s.Pos()
	s.SkipWhitespace()
	if s.MatchLiteral("stream") {
		// Per PDF syntax the stream keyword is followed by CRLF or LF (never
		// bare CR) before the payload begins.
		if s.Peek() == '\r' {
			s.Advance()
		}
		if s.Peek() == '\n' {
			s.Advance()
		}
		return types.Value{}, fmt.Errorf("parser: stream length resolution must be done by the caller")
	}
	s.SeekTo(save)
	return types.DictValue(d), nil
}

func parseDict(s *ioscan.Scanner) (*types.Dict, error) {
	s.Advance()
	s.Advance() // '<<'
	d := types.NewDict()
	for {
		s.SkipWhitespace()
		if s.PeekLiteral(">>") {
			s.Advance()
			s.Advance()
			return d, nil
		}
		if s.Peek() != '/' {
			return nil, fmt.Errorf("parser: expected name key in dictionary at offset %d", s.Pos())
		}
		keyVal := parseName(s)
		key, _ := keyVal.Name()
		s.SkipWhitespace()
		v, err := parseValueNoStream(s)
		if err != nil {
			return nil, err
		}
		d.Set(key, v)
	}
}

// parseValueNoStream parses a value but never attempts stream detection -
// used for dictionary entries, where a following "stream" keyword belongs
// to the enclosing dict, not to a nested value.
func parseValueNoStream(s *ioscan.Scanner) (types.Value, error) {
	s.SkipWhitespace()
	if s.PeekLiteral("<<") {
		d, err := parseDict(s)
		if err != nil {
			return types.Value{}, err
		}
		return types.DictValue(d), nil
	}
	return ParseValue(s)
}

func parseKeywordBool(s *ioscan.Scanner) (types.Value, error) {
	if s.MatchLiteral("true") {
		return types.Bool(true), nil
	}
	if s.MatchLiteral("false") {
		return types.Bool(false), nil
	}
	return types.Value{}, fmt.Errorf("parser: invalid keyword at offset %d", s.Pos())
}

func parseKeywordNull(s *ioscan.Scanner) (types.Value, error) {
	if s.MatchLiteral("null") {
		return types.Null(), nil
	}
	return types.Value{}, fmt.Errorf("parser: invalid keyword at offset %d", s.Pos())
}

// parseNumberOrRef parses a number, and if it's a non-negative integer,
// looks ahead for "G R" to detect an indirect reference.
func parseNumberOrRef(s *ioscan.Scanner) (types.Value, error) {
	start := s.Pos()
	intVal, isInt := s.ReadDecimal()
	if isInt && s.Peek() != '.' {
		save := s.Pos()
		s.SkipWhitespace()
		if genVal, ok := s.ReadDecimal(); ok && genVal >= 0 && intVal >= 0 {
			genSave := s.Pos()
			s.SkipWhitespace()
			if s.Peek() == 'R' && !isRegularByte(s.PeekAt(1)) {
				s.Advance()
				return types.IndirectRef(uint32(intVal), uint16(genVal)), nil
			}
			s.SeekTo(genSave)
		}
		s.SeekTo(save)
		return types.Int(intVal), nil
	}
	s.SeekTo(start)
	f, ok := s.ReadReal()
	if !ok {
		return types.Value{}, fmt.Errorf("parser: invalid number at offset %d", s.Pos())
	}
	return types.Real(f), nil
}

func isRegularByte(b int) bool {
	if b == ioscan.EOF {
		return false
	}
	return !ioscan.IsDelimiter(byte(b)) && !ioscan.IsWhitespace(byte(b))
}

// IndirectObjectHeader is the result of parsing the "N G obj" line that
// precedes every indirect object body.
type IndirectObjectHeader struct {
	Num uint32
	Gen uint16
}

// ParseIndirectObjectHeader parses "N G obj" at the scanner's current
// position and advances past it.
func ParseIndirectObjectHeader(s *ioscan.Scanner) (IndirectObjectHeader, error) {
	s.SkipWhitespace()
	num, ok := s.ReadDecimal()
	if !ok || num < 0 {
		return IndirectObjectHeader{}, fmt.Errorf("parser: expected object number at offset %d", s.Pos())
	}
	s.SkipWhitespace()
	gen, ok := s.ReadDecimal()
	if !ok || gen < 0 {
		return IndirectObjectHeader{}, fmt.Errorf("parser: expected generation number at offset %d", s.Pos())
	}
	s.SkipWhitespace()
	if !s.MatchLiteral("obj") {
		return IndirectObjectHeader{}, fmt.Errorf("parser: expected 'obj' keyword at offset %d", s.Pos())
	}
	return IndirectObjectHeader{Num: uint32(num), Gen: uint16(gen)}, nil
}

// ParseIndirectObjectBody parses the value following "N G obj", handling the
// dict-then-stream case by reading exactly streamLength raw bytes once the
// caller has resolved /Length (which may itself be an indirect reference).
// lengthResolver is nil-safe: when nil, an indirect-reference /Length is left
// unresolved and the stream is read up to the next "endstream" keyword.
func ParseIndirectObjectBody(s *ioscan.Scanner, lengthResolver func(types.Value) (int64, bool)) (types.Value, error) {
	s.SkipWhitespace()
	if !s.PeekLiteral("<<") {
		v, err := ParseValue(s)
		if err != nil {
			return types.Value{}, err
		}
		s.SkipWhitespace()
		s.MatchLiteral("endobj")
		return v, nil
	}

	d, err := parseDict(s)
	if err != nil {
		return types.Value{}, err
	}
	save := s.Pos()
	s.SkipWhitespace()
	if !s.MatchLiteral("stream") {
		s.SeekTo(save)
		s.SkipWhitespace()
		s.MatchLiteral("endobj")
		return types.DictValue(d), nil
	}
	if s.Peek() == '\r' {
		s.Advance()
	}
	if s.Peek() == '\n' {
		s.Advance()
	}
	dataStart := s.Pos()

	var length int64
	if lv, ok := d.Get("Length"); ok {
		if n, ok2 := lv.Int(); ok2 {
			length = n
		} else if lengthResolver != nil {
			if n, ok2 := lengthResolver(lv); ok2 {
				length = n
			}
		}
	}

	var raw []byte
	if length > 0 && dataStart+int(length) <= s.Len() {
		raw = s.Slice(dataStart, dataStart+int(length))
		s.SeekTo(dataStart + int(length))
		s.SkipWhitespace()
		if !s.MatchLiteral("endstream") {
			// Declared length didn't land on "endstream": the producer's
			// /Length was wrong. Fall back to scanning for the keyword.
			s.SeekTo(dataStart)
			raw, err = scanToEndstream(s)
			if err != nil {
				return types.Value{}, err
			}
		}
	} else {
		raw, err = scanToEndstream(s)
		if err != nil {
			return types.Value{}, err
		}
	}

	s.SkipWhitespace()
	s.MatchLiteral("endobj")
	return types.StreamValue(&types.Stream{Dict: d, Raw: raw}), nil
}

func lastByte(s *ioscan.Scanner, end int) byte {
	b := s.Slice(end-1, end)
	if len(b) == 0 {
		return 0
	}
	return b[0]
}

func scanToEndstream(s *ioscan.Scanner) ([]byte, error) {
	start := s.Pos()
	for {
		if s.AtEnd() {
			return nil, fmt.Errorf("parser: unterminated stream starting at offset %d", start)
		}
		if s.PeekLiteral("endstream") {
			end := s.Pos()
			// Trim the single EOL that precedes "endstream" per spec.
			if end > start && lastByte(s, end) == '\n' {
				end--
				if end > start && lastByte(s, end) == '\r' {
					end--
				}
			}
			raw := s.Slice(start, end)
			s.MatchLiteral("endstream")
			return raw, nil
		}
		s.Advance()
	}
}
