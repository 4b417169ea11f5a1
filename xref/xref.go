// Package xref locates and parses a PDF's cross-reference data: classic
// xref tables, xref streams, /Prev chains, and the brute-force recovery scan
// used when the declared xref is damaged or absent.
package xref

import (
	"fmt"
	"log"

	"github.com/benedoc-inc/pdfcore/ioscan"
	"github.com/benedoc-inc/pdfcore/parser"
	"github.com/benedoc-inc/pdfcore/types"
)

// Section is one parsed cross-reference section: the object entries it
// declares, plus its trailer dictionary and its byte offset in the file
// (used to emit /Prev when writing incrementally).
type Section struct {
	Entries  map[uint32]types.ObjectEntry
	Trailer  *types.Dict
	Offset   int64
	IsStream bool
}

// Table is the effective, merged cross-reference: the union of every
// section in the /Prev chain, later sections overriding earlier ones.
type Table struct {
	Entries   map[uint32]types.ObjectEntry
	Trailer   *types.Dict
	Sections  []*Section // head-first: newest first
	Recovered bool        // true if brute-force recovery was used
}

// Locate finds the byte offset of the newest xref section by searching the
// last window bytes for "startxref". window <= 0 means search the whole
// buffer.
func Locate(buf []byte, window int) (int64, error) {
	idx := ioscan.LocateBackward(buf, []byte("startxref"), window)
	if idx < 0 {
		return 0, fmt.Errorf("xref: startxref keyword not found")
	}
	s := ioscan.NewScannerAt(buf, idx+len("startxref"))
	s.SkipWhitespace()
	off, ok := s.ReadDecimal()
	if !ok || off < 0 {
		return 0, fmt.Errorf("xref: startxref not followed by a valid offset")
	}
	return off, nil
}

// Parse builds the effective cross-reference table for buf, starting at
// offset startXRef and following /Prev links. If the declared xref cannot be
// parsed at all, it falls back to brute-force recovery and the returned
// Table has Recovered set.
func Parse(buf []byte, startXRef int64, verbose bool) (*Table, error) {
	sections, err := parseChain(buf, startXRef, verbose, make(map[int64]bool))
	if err != nil || len(sections) == 0 {
		if verbose {
			log.Printf("xref: declared xref unusable (%v), falling back to brute-force recovery", err)
		}
		return recover_(buf, verbose)
	}

	merged := make(map[uint32]types.ObjectEntry)
	// Sections is newest-first; apply oldest-first so later entries win.
	for i := len(sections) - 1; i >= 0; i-- {
		for num, entry := range sections[i].Entries {
			merged[num] = entry
		}
	}

	return &Table{
		Entries:  merged,
		Trailer:  sections[0].Trailer,
		Sections: sections,
	}, nil
}

func parseChain(buf []byte, offset int64, verbose bool, seen map[int64]bool) ([]*Section, error) {
	if seen[offset] {
		return nil, fmt.Errorf("xref: cyclic /Prev chain at offset %d", offset)
	}
	seen[offset] = true

	sec, err := parseOneSection(buf, offset, verbose)
	if err != nil {
		return nil, err
	}

	chain := []*Section{sec}
	if prevVal, ok := sec.Trailer.Get("Prev"); ok {
		if prevOff, ok2 := prevVal.Int(); ok2 {
			rest, err := parseChain(buf, prevOff, verbose, seen)
			if err != nil {
				if verbose {
					log.Printf("xref: /Prev chain broke at offset %d: %v (keeping sections found so far)", prevOff, err)
				}
				return chain, nil
			}
			chain = append(chain, rest...)
		}
	}
	// An xref stream's trailer may also carry /XRefStm, pointing at a hybrid
	// classic-table companion section; merge it in ahead of /Prev so the
	// stream's own entries still win where they overlap.
	if xrefStmVal, ok := sec.Trailer.Get("XRefStm"); ok {
		if xrefStmOff, ok2 := xrefStmVal.Int(); ok2 && !seen[xrefStmOff] {
			hybrid, err := parseChain(buf, xrefStmOff, verbose, seen)
			if err == nil {
				chain = append(chain[:1], append(hybrid, chain[1:]...)...)
			}
		}
	}
	return chain, nil
}

func parseOneSection(buf []byte, offset int64, verbose bool) (*Section, error) {
	if offset < 0 || int(offset) >= len(buf) {
		return nil, fmt.Errorf("xref: section offset %d out of range", offset)
	}
	s := ioscan.NewScannerAt(buf, int(offset))
	s.SkipWhitespace()
	if s.PeekLiteral("xref") {
		return parseClassicTable(s, offset)
	}
	return parseXRefStreamSection(buf, s, offset, verbose)
}

// parseClassicTable parses "xref\n{first nEntries\n{20-byte record}*}*trailer<<...>>".
func parseClassicTable(s *ioscan.Scanner, offset int64) (*Section, error) {
	s.MatchLiteral("xref")
	entries := make(map[uint32]types.ObjectEntry)

	for {
		s.SkipWhitespace()
		if s.PeekLiteral("trailer") {
			break
		}
		first, ok := s.ReadDecimal()
		if !ok {
			return nil, fmt.Errorf("xref: expected subsection header at offset %d", s.Pos())
		}
		s.SkipWhitespace()
		count, ok := s.ReadDecimal()
		if !ok {
			return nil, fmt.Errorf("xref: expected subsection count at offset %d", s.Pos())
		}
		s.SkipWhitespace()
		for i := int64(0); i < count; i++ {
			rec, err := parseClassicRecord(s)
			if err != nil {
				return nil, err
			}
			num := uint32(first + i)
			if _, exists := entries[num]; !exists {
				entries[num] = rec
			}
		}
	}

	s.MatchLiteral("trailer")
	s.SkipWhitespace()
	trailerVal, err := parser.ParseValue(s)
	if err != nil {
		return nil, fmt.Errorf("xref: invalid trailer dictionary: %w", err)
	}
	trailer, ok := trailerVal.Dict()
	if !ok {
		return nil, fmt.Errorf("xref: trailer is not a dictionary")
	}
	return &Section{Entries: entries, Trailer: trailer, Offset: offset}, nil
}

func parseClassicRecord(s *ioscan.Scanner) (types.ObjectEntry, error) {
	off, ok := s.ReadDecimal()
	if !ok {
		return types.ObjectEntry{}, fmt.Errorf("xref: malformed record offset at %d", s.Pos())
	}
	s.SkipWhitespace()
	gen, ok := s.ReadDecimal()
	if !ok {
		return types.ObjectEntry{}, fmt.Errorf("xref: malformed record generation at %d", s.Pos())
	}
	s.SkipWhitespace()
	kindByte := s.Advance()
	// Consume the two-byte end-of-record padding (space+EOL variants).
	s.SkipWhitespace()

	switch kindByte {
	case 'n':
		return types.ObjectEntry{Kind: types.EntryInUse, Offset: off, Generation: uint16(gen)}, nil
	case 'f':
		return types.ObjectEntry{Kind: types.EntryFree, NextFree: uint32(off), Generation: uint16(gen)}, nil
	default:
		return types.ObjectEntry{}, fmt.Errorf("xref: invalid record type byte 0x%02x", kindByte)
	}
}

// parseXRefStreamSection parses an indirect object at offset whose value is
// a stream with /Type /XRef.
func parseXRefStreamSection(buf []byte, s *ioscan.Scanner, offset int64, verbose bool) (*Section, error) {
	if _, err := parser.ParseIndirectObjectHeader(s); err != nil {
		return nil, fmt.Errorf("xref: no object header at offset %d: %w", offset, err)
	}
	val, err := parser.ParseIndirectObjectBody(s, nil)
	if err != nil {
		return nil, fmt.Errorf("xref: failed to parse xref stream object: %w", err)
	}
	stm, ok := val.Stream()
	if !ok {
		return nil, fmt.Errorf("xref: object at offset %d is not a stream", offset)
	}
	d := stm.Dict
	if typeVal, ok := d.Get("Type"); ok {
		if name, _ := typeVal.Name(); name != "XRef" {
			return nil, fmt.Errorf("xref: expected /Type /XRef, got /%s", name)
		}
	}

	decoded, err := parser.DecodeStream(stm)
	if err != nil {
		return nil, fmt.Errorf("xref: failed to decode xref stream: %w", err)
	}

	widths, err := readWidths(d)
	if err != nil {
		return nil, err
	}
	sizeVal, _ := d.Get("Size")
	size, _ := sizeVal.Int()

	indexPairs, err := readIndex(d, size)
	if err != nil {
		return nil, err
	}

	entries, err := decodeRecords(decoded, widths, indexPairs)
	if err != nil {
		return nil, err
	}

	return &Section{Entries: entries, Trailer: d, Offset: offset, IsStream: true}, nil
}

func readWidths(d *types.Dict) ([3]int, error) {
	var w [3]int
	wVal, ok := d.Get("W")
	if !ok {
		return w, fmt.Errorf("xref: xref stream missing /W")
	}
	arr, ok := wVal.Array()
	if !ok || len(arr) != 3 {
		return w, fmt.Errorf("xref: /W must be a 3-element array")
	}
	for i := 0; i < 3; i++ {
		n, ok := arr[i].Int()
		if !ok {
			return w, fmt.Errorf("xref: /W element %d is not an integer", i)
		}
		w[i] = int(n)
	}
	return w, nil
}

type indexPair struct{ first, count int64 }

func readIndex(d *types.Dict, size int64) ([]indexPair, error) {
	indexVal, ok := d.Get("Index")
	if !ok {
		return []indexPair{{0, size}}, nil
	}
	arr, ok := indexVal.Array()
	if !ok || len(arr)%2 != 0 {
		return nil, fmt.Errorf("xref: /Index must be an even-length array")
	}
	var pairs []indexPair
	for i := 0; i < len(arr); i += 2 {
		first, ok1 := arr[i].Int()
		count, ok2 := arr[i+1].Int()
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("xref: /Index elements must be integers")
		}
		pairs = append(pairs, indexPair{first, count})
	}
	return pairs, nil
}

func decodeRecords(data []byte, widths [3]int, pairs []indexPair) (map[uint32]types.ObjectEntry, error) {
	entries := make(map[uint32]types.ObjectEntry)
	recordLen := widths[0] + widths[1] + widths[2]
	if recordLen == 0 {
		return entries, fmt.Errorf("xref: zero-width xref stream record")
	}
	pos := 0
	for _, pair := range pairs {
		for i := int64(0); i < pair.count; i++ {
			if pos+recordLen > len(data) {
				return entries, fmt.Errorf("xref: xref stream truncated at object %d", pair.first+i)
			}
			fieldType := int64(1)
			if widths[0] > 0 {
				fieldType = beUint(data[pos : pos+widths[0]])
			}
			pos += widths[0]
			f2 := beUint(data[pos : pos+widths[1]])
			pos += widths[1]
			f3 := beUint(data[pos : pos+widths[2]])
			pos += widths[2]

			num := uint32(pair.first + i)
			switch fieldType {
			case 0:
				entries[num] = types.ObjectEntry{Kind: types.EntryFree, NextFree: uint32(f2), Generation: uint16(f3)}
			case 1:
				entries[num] = types.ObjectEntry{Kind: types.EntryInUse, Offset: f2, Generation: uint16(f3)}
			case 2:
				entries[num] = types.ObjectEntry{Kind: types.EntryCompressed, ContainerObjNum: uint32(f2), IndexInContainer: uint32(f3)}
			default:
				return entries, fmt.Errorf("xref: unknown xref stream entry type %d", fieldType)
			}
		}
	}
	return entries, nil
}

func beUint(b []byte) int64 {
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}
