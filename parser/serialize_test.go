package parser

import (
	"testing"

	"github.com/benedoc-inc/pdfcore/ioscan"
	"github.com/benedoc-inc/pdfcore/types"
)

func serialize(v types.Value) string {
	w := ioscan.NewByteWriter()
	WriteValue(w, v)
	return string(w.Bytes())
}

func TestFormatRealNoScientificNotation(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{3.14, "3.14"},
		{10, "10"},
		{-0.5, "-0.5"},
		{0, "0"},
		{100000000, "100000000"},
	}
	for _, tt := range tests {
		if got := FormatReal(tt.in); got != tt.want {
			t.Errorf("FormatReal(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteNameEscapesSpecialBytes(t *testing.T) {
	got := serialize(types.Name("A B#"))
	want := "/A#20B#23"
	if got != want {
		t.Errorf("serialize(name) = %q, want %q", got, want)
	}
}

func TestWriteLiteralStringEscapesParens(t *testing.T) {
	got := serialize(types.LiteralString([]byte("a(b)c\\d")))
	want := `(a\(b\)c\\d)`
	if got != want {
		t.Errorf("serialize(literal) = %q, want %q", got, want)
	}
}

func TestWriteHexString(t *testing.T) {
	got := serialize(types.HexString([]byte("Hi")))
	want := "<4869>"
	if got != want {
		t.Errorf("serialize(hex) = %q, want %q", got, want)
	}
}

func TestWriteArrayAndDict(t *testing.T) {
	d := types.NewDict()
	d.Set("Type", types.Name("Page"))
	d.Set("Count", types.Int(3))
	got := serialize(types.DictValue(d))
	want := "<< /Type /Page /Count 3 >>"
	if got != want {
		t.Errorf("serialize(dict) = %q, want %q", got, want)
	}
}

func TestWriteRef(t *testing.T) {
	got := serialize(types.IndirectRef(7, 0))
	if got != "7 0 R" {
		t.Errorf("serialize(ref) = %q, want %q", got, "7 0 R")
	}
}

func TestRoundTripDictThroughParseAndSerialize(t *testing.T) {
	src := "<< /Type /Page /Parent 3 0 R /MediaBox [0 0 612 792] >>"
	s := ioscan.NewScanner([]byte(src))
	v, err := ParseValue(s)
	if err != nil {
		t.Fatal(err)
	}
	got := serialize(v)
	if got != src {
		t.Errorf("round trip = %q, want %q", got, src)
	}
}

func TestWriteIndirectObjectStream(t *testing.T) {
	d := types.NewDict()
	d.Set("Filter", types.Name("FlateDecode"))
	stm := &types.Stream{Dict: d, Raw: []byte("abc")}
	w := ioscan.NewByteWriter()
	WriteIndirectObject(w, 4, 0, types.StreamValue(stm))
	got := string(w.Bytes())
	want := "4 0 obj\n<< /Filter /FlateDecode /Length 3 >>\nstream\nabc\nendstream\nendobj\n"
	if got != want {
		t.Errorf("WriteIndirectObject() = %q, want %q", got, want)
	}
}
