package write

import (
	"bytes"
	"compress/zlib"

	"github.com/benedoc-inc/pdfcore/ioscan"
	"github.com/benedoc-inc/pdfcore/parser"
	"github.com/benedoc-inc/pdfcore/types"
)

// writeClassicXRefSection emits a single-subsection classic xref table
// covering object numbers [0, maxNum], object 0 as the free-list head, and
// every other number as either an in-use entry at its recorded offset or a
// free entry when it was never written (a gap left by renumbering).
// Returns the byte offset the section itself starts at.
func writeClassicXRefSection(w *ioscan.ByteWriter, maxNum uint32, offsets map[uint32]int64) int64 {
	start := w.Pos()
	w.WriteString("xref\n")
	w.WriteInt(0)
	w.WriteByte(' ')
	w.WriteInt(int64(maxNum) + 1)
	w.WriteByte('\n')

	w.WriteString("0000000000 65535 f \n")
	for num := uint32(1); num <= maxNum; num++ {
		if off, ok := offsets[num]; ok {
			w.WritePadded(off, 10)
			w.WriteString(" 00000 n \n")
		} else {
			w.WritePadded(0, 10)
			w.WriteString(" 00000 f \n")
		}
	}
	return start
}

// writeXRefStreamSection builds a cross-reference stream describing every
// object number [0, maxNum] plus its own entry, compresses it with
// FlateDecode, and emits it as the final indirect object of the file. trailer
// supplies /Root, /Info, /ID, /Encrypt; this function adds /Type, /Size,
// /W, /Filter, /Length itself. locs entries may be direct offsets or
// (container, index) pairs for objects compacted into an object stream.
// Returns the byte offset the stream object starts at.
func writeXRefStreamSection(w *ioscan.ByteWriter, maxNum uint32, locs map[uint32]xrefLoc, trailer *types.Dict) int64 {
	xrefNum := maxNum + 1
	total := xrefNum + 1

	maxOffset := w.Pos() + 256
	maxField3 := int64(0)
	for _, loc := range locs {
		if !loc.Compressed && loc.Offset > maxOffset {
			maxOffset = loc.Offset
		}
		if loc.Compressed && int64(loc.ContainerObjNum) > maxOffset {
			maxOffset = int64(loc.ContainerObjNum)
		}
		if loc.Compressed && int64(loc.IndexInContainer) > maxField3 {
			maxField3 = int64(loc.IndexInContainer)
		}
	}

	const w1 = 1
	w2 := bytesNeeded(maxOffset)
	w3 := bytesNeeded(maxField3)
	if w3 < 1 {
		w3 = 1
	}
	entryWidth := w1 + w2 + w3

	data := make([]byte, 0, int(total)*entryWidth)
	data = append(data, entry(0, 0, 0, w2, w3)...) // object 0: free, head of free list

	for num := uint32(1); num < xrefNum; num++ {
		loc, ok := locs[num]
		switch {
		case !ok:
			data = append(data, entry(0, 0, 0, w2, w3)...)
		case loc.Compressed:
			data = append(data, entry(2, int64(loc.ContainerObjNum), uint16(loc.IndexInContainer), w2, w3)...)
		default:
			data = append(data, entry(1, loc.Offset, 0, w2, w3)...)
		}
	}

	xrefPos := w.Pos()
	data = append(data, entry(1, xrefPos, 0, w2, w3)...)

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	_, _ = zw.Write(data)
	_ = zw.Close()

	dict := trailer.Clone()
	dict.Set("Type", types.Name("XRef"))
	dict.Set("Size", types.Int(int64(total)))
	dict.Set("W", types.Array([]types.Value{types.Int(w1), types.Int(int64(w2)), types.Int(int64(w3))}))
	dict.Set("Filter", types.Name("FlateDecode"))

	stm := &types.Stream{Dict: dict, Raw: compressed.Bytes()}
	parser.WriteIndirectObject(w, xrefNum, 0, types.StreamValue(stm))
	return xrefPos
}

func entry(kind byte, field2 int64, field3 uint16, w2, w3 int) []byte {
	e := make([]byte, 1+w2+w3)
	e[0] = kind
	v := field2
	for i := w2; i >= 1; i-- {
		e[i] = byte(v & 0xff)
		v >>= 8
	}
	g := field3
	for i := w2 + w3; i >= w2+1; i-- {
		e[i] = byte(g & 0xff)
		g >>= 8
	}
	return e
}

func bytesNeeded(n int64) int {
	if n <= 0 {
		return 1
	}
	count := 0
	for n > 0 {
		count++
		n >>= 8
	}
	return count
}
