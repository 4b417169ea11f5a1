package xref

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/benedoc-inc/pdfcore/types"
)

func buildClassicPDF() []byte {
	var b strings.Builder
	b.WriteString("%PDF-1.7\n")
	obj1Off := b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	obj2Off := b.Len()
	b.WriteString("2 0 obj\n<< /Type /Pages /Kids [] /Count 0 >>\nendobj\n")
	xrefOff := b.Len()
	b.WriteString("xref\n0 3\n")
	b.WriteString("0000000000 65535 f \n")
	b.WriteString(pad(obj1Off) + " 00000 n \n")
	b.WriteString(pad(obj2Off) + " 00000 n \n")
	b.WriteString("trailer\n<< /Size 3 /Root 1 0 R >>\n")
	b.WriteString("startxref\n")
	b.WriteString(itoa(xrefOff))
	b.WriteString("\n%%EOF")
	return []byte(b.String())
}

func pad(n int) string {
	s := itoa(n)
	for len(s) < 10 {
		s = "0" + s
	}
	return s
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}

func TestLocateFindsStartxref(t *testing.T) {
	buf := buildClassicPDF()
	off, err := Locate(buf, 1024)
	require.NoError(t, err)
	require.Greater(t, off, int64(0))
}

func TestParseClassicTableAndTrailer(t *testing.T) {
	buf := buildClassicPDF()
	off, err := Locate(buf, 1024)
	require.NoError(t, err)
	table, err := Parse(buf, off, false)
	require.NoError(t, err)
	require.False(t, table.Recovered, "should not need brute-force recovery for a well-formed classic table")

	e1, ok := table.Entries[1]
	require.True(t, ok)
	require.Equal(t, types.EntryInUse, e1.Kind)

	rootVal, ok := table.Trailer.Get("Root")
	require.True(t, ok, "trailer missing /Root")
	ref, ok := rootVal.Ref()
	require.True(t, ok)
	require.Equal(t, uint32(1), ref.Num)
}

func TestRecoverFindsObjectsWithoutXref(t *testing.T) {
	src := "%PDF-1.7\n1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n2 0 obj\n<< /Type /Pages /Kids [] /Count 0 >>\nendobj\n"
	table, err := recover_([]byte(src), false)
	require.NoError(t, err)
	require.True(t, table.Recovered)

	_, ok := table.Entries[1]
	require.True(t, ok, "expected object 1 to be recovered")
	_, ok = table.Entries[2]
	require.True(t, ok, "expected object 2 to be recovered")

	rootVal, ok := table.Trailer.Get("Root")
	require.True(t, ok, "recovered trailer missing /Root")
	ref, _ := rootVal.Ref()
	require.Equal(t, uint32(1), ref.Num)
}

func TestParseFallsBackToRecoveryOnDamagedXref(t *testing.T) {
	buf := buildClassicPDF()
	table, err := Parse(buf, 999999, false)
	require.NoError(t, err)
	require.True(t, table.Recovered, "expected fallback to brute-force recovery for a bogus offset")
}
