package parser

import (
	"strconv"
	"strings"

	"github.com/benedoc-inc/pdfcore/ioscan"
	"github.com/benedoc-inc/pdfcore/types"
)

// WriteValue serializes v to w using PDF syntax. Streams are written with
// their Raw payload and a /Length entry reflecting len(Raw) exactly, which
// is why callers must run the stream's dictionary through the filter
// pipeline before calling WriteValue if they intend /Length to describe the
// re-encoded bytes rather than the decoded ones.
func WriteValue(w *ioscan.ByteWriter, v types.Value) {
	switch v.Kind() {
	case types.KindNull:
		w.WriteString("null")
	case types.KindBool:
		b, _ := v.Bool()
		w.WriteString(strconv.FormatBool(b))
	case types.KindInt:
		i, _ := v.Int()
		w.WriteInt(i)
	case types.KindReal:
		f, _ := v.Real()
		w.WriteString(FormatReal(f))
	case types.KindName:
		name, _ := v.Name()
		writeName(w, name)
	case types.KindLiteralString:
		b, _ := v.StringBytes()
		writeLiteralString(w, b)
	case types.KindHexString:
		b, _ := v.StringBytes()
		writeHexString(w, b)
	case types.KindArray:
		items, _ := v.Array()
		w.WriteByte('[')
		for i, item := range items {
			if i > 0 {
				w.WriteByte(' ')
			}
			WriteValue(w, item)
		}
		w.WriteByte(']')
	case types.KindDict:
		d, _ := v.Dict()
		writeDict(w, d)
	case types.KindStream:
		stm, _ := v.Stream()
		writeStream(w, stm)
	case types.KindRef:
		ref, _ := v.Ref()
		w.WriteUint(uint64(ref.Num))
		w.WriteByte(' ')
		w.WriteUint(uint64(ref.Gen))
		w.WriteString(" R")
	}
}

// FormatReal renders f with PDF's real-number syntax: at least one digit on
// each side of the decimal point, trailing zeros trimmed, never scientific.
func FormatReal(f float64) string {
	s := strconv.FormatFloat(f, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "" || s == "-" {
		s = "0"
	}
	if !strings.Contains(s, ".") {
		return s
	}
	return s
}

func writeName(w *ioscan.ByteWriter, name string) {
	w.WriteByte('/')
	for i := 0; i < len(name); i++ {
		b := name[i]
		if needsNameEscape(b) {
			w.WriteByte('#')
			w.WriteString(hexPair(b))
		} else {
			w.WriteByte(b)
		}
	}
}

func needsNameEscape(b byte) bool {
	if b == '#' || ioscan.IsDelimiter(b) || ioscan.IsWhitespace(b) {
		return true
	}
	return b < 0x21 || b > 0x7E
}

func hexPair(b byte) string {
	const hexChars = "0123456789ABCDEF"
	return string([]byte{hexChars[b>>4], hexChars[b&0x0F]})
}

func writeLiteralString(w *ioscan.ByteWriter, b []byte) {
	w.WriteByte('(')
	for _, c := range b {
		switch c {
		case '(':
			w.WriteByte('\\')
			w.WriteByte('(')
		case ')':
			w.WriteByte('\\')
			w.WriteByte(')')
		case '\\':
			w.WriteByte('\\')
			w.WriteByte('\\')
		case '\n':
			w.WriteByte('\\')
			w.WriteByte('n')
		case '\r':
			w.WriteByte('\\')
			w.WriteByte('r')
		default:
			if c < 0x20 || c >= 0x7F {
				w.WriteByte('\\')
				w.WriteString(octal3(c))
			} else {
				w.WriteByte(c)
			}
		}
	}
	w.WriteByte(')')
}

func octal3(b byte) string {
	s := strconv.FormatInt(int64(b), 8)
	for len(s) < 3 {
		s = "0" + s
	}
	return s
}

func writeHexString(w *ioscan.ByteWriter, b []byte) {
	w.WriteByte('<')
	for _, c := range b {
		w.WriteString(hexPair(c))
	}
	w.WriteByte('>')
}

func writeDict(w *ioscan.ByteWriter, d *types.Dict) {
	w.WriteString("<<")
	d.Each(func(key string, v types.Value) {
		w.WriteByte(' ')
		writeName(w, key)
		w.WriteByte(' ')
		WriteValue(w, v)
	})
	w.WriteString(" >>")
}

func writeStream(w *ioscan.ByteWriter, stm *types.Stream) {
	d := stm.Dict.Clone()
	d.Set("Length", types.Int(int64(len(stm.Raw))))
	writeDict(w, d)
	w.WriteString("\nstream\n")
	w.WriteRaw(stm.Raw)
	w.WriteString("\nendstream")
}

// WriteIndirectObject serializes "N G obj\n" + value + "\nendobj\n".
func WriteIndirectObject(w *ioscan.ByteWriter, num uint32, gen uint16, v types.Value) {
	w.WriteUint(uint64(num))
	w.WriteByte(' ')
	w.WriteUint(uint64(gen))
	w.WriteString(" obj\n")
	WriteValue(w, v)
	w.WriteString("\nendobj\n")
}
