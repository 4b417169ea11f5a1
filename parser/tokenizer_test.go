package parser

import (
	"testing"

	"github.com/benedoc-inc/pdfcore/ioscan"
)

func TestParseValueScalars(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"int", "42"},
		{"negative int", "-17"},
		{"real", "3.14"},
		{"name", "/Type"},
		{"name with escape", "/A#20B"},
		{"bool true", "true"},
		{"bool false", "false"},
		{"null", "null"},
		{"literal string", "(Hello)"},
		{"hex string", "<48656C6C6F>"},
		{"array", "[1 2 3]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ioscan.NewScanner([]byte(tt.src))
			if _, err := ParseValue(s); err != nil {
				t.Fatalf("ParseValue(%q) error: %v", tt.src, err)
			}
		})
	}
}

func TestParseValueNameEscape(t *testing.T) {
	s := ioscan.NewScanner([]byte("/A#20B"))
	v, err := ParseValue(s)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := v.Name()
	if got != "A B" {
		t.Errorf("Name() = %q, want %q", got, "A B")
	}
}

func TestParseValueIndirectRef(t *testing.T) {
	s := ioscan.NewScanner([]byte("12 0 R"))
	v, err := ParseValue(s)
	if err != nil {
		t.Fatal(err)
	}
	ref, ok := v.Ref()
	if !ok || ref.Num != 12 || ref.Gen != 0 {
		t.Fatalf("Ref() = %+v, %v; want {12 0}, true", ref, ok)
	}
}

func TestParseValueDoesNotConfuseIntWithRef(t *testing.T) {
	s := ioscan.NewScanner([]byte("12 true"))
	v, err := ParseValue(s)
	if err != nil {
		t.Fatal(err)
	}
	i, ok := v.Int()
	if !ok || i != 12 {
		t.Fatalf("Int() = %d, %v; want 12, true", i, ok)
	}
}

func TestParseLiteralStringEscapes(t *testing.T) {
	s := ioscan.NewScanner([]byte(`(Line1\nLine2\t\(paren\))`))
	v, err := ParseValue(s)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := v.StringBytes()
	want := "Line1\nLine2\t(paren)"
	if string(b) != want {
		t.Fatalf("StringBytes() = %q, want %q", b, want)
	}
}

func TestParseLiteralStringOctalEscape(t *testing.T) {
	s := ioscan.NewScanner([]byte(`(\101\102)`))
	v, err := ParseValue(s)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := v.StringBytes()
	if string(b) != "AB" {
		t.Fatalf("StringBytes() = %q, want %q", b, "AB")
	}
}

func TestParseHexStringOddLengthPadded(t *testing.T) {
	s := ioscan.NewScanner([]byte("<48656C6C6F>"))
	v, err := ParseValue(s)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := v.StringBytes()
	if string(b) != "Hello" {
		t.Fatalf("StringBytes() = %q, want %q", b, "Hello")
	}

	s2 := ioscan.NewScanner([]byte("<4>"))
	v2, err := ParseValue(s2)
	if err != nil {
		t.Fatal(err)
	}
	b2, _ := v2.StringBytes()
	if len(b2) != 1 || b2[0] != 0x40 {
		t.Fatalf("odd-length hex string = %x, want 40", b2)
	}
}

func TestParseDictPreservesOrder(t *testing.T) {
	s := ioscan.NewScanner([]byte("<< /Type /Page /Parent 3 0 R /Count 2 >>"))
	v, err := ParseValue(s)
	if err != nil {
		t.Fatal(err)
	}
	d, ok := v.Dict()
	if !ok {
		t.Fatal("expected a dict")
	}
	want := []string{"Type", "Parent", "Count"}
	got := d.Keys()
	if len(got) != len(want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseIndirectObjectHeader(t *testing.T) {
	s := ioscan.NewScanner([]byte("7 0 obj\n<< /Type /Catalog >>\nendobj"))
	hdr, err := ParseIndirectObjectHeader(s)
	if err != nil {
		t.Fatal(err)
	}
	if hdr.Num != 7 || hdr.Gen != 0 {
		t.Fatalf("header = %+v, want {7 0}", hdr)
	}
	v, err := ParseIndirectObjectBody(s, nil)
	if err != nil {
		t.Fatal(err)
	}
	d, ok := v.Dict()
	if !ok {
		t.Fatal("expected dict body")
	}
	typeVal, _ := d.Get("Type")
	name, _ := typeVal.Name()
	if name != "Catalog" {
		t.Fatalf("Type = %q, want Catalog", name)
	}
}

func TestParseIndirectObjectBodyStream(t *testing.T) {
	src := "5 0 obj\n<< /Length 5 >>\nstream\nhello\nendstream\nendobj"
	s := ioscan.NewScanner([]byte(src))
	if _, err := ParseIndirectObjectHeader(s); err != nil {
		t.Fatal(err)
	}
	v, err := ParseIndirectObjectBody(s, nil)
	if err != nil {
		t.Fatal(err)
	}
	stm, ok := v.Stream()
	if !ok {
		t.Fatal("expected stream body")
	}
	if string(stm.Raw) != "hello" {
		t.Fatalf("Raw = %q, want %q", stm.Raw, "hello")
	}
}
