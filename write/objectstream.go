package write

import (
	"bytes"
	"compress/zlib"
	"strconv"

	"github.com/benedoc-inc/pdfcore/ioscan"
	"github.com/benedoc-inc/pdfcore/parser"
	"github.com/benedoc-inc/pdfcore/types"
)

// objStmMaxMembers caps how many objects a single object stream holds, so one
// oversized document doesn't force a single pathologically large stream.
const objStmMaxMembers = 200

// objStmCandidate is a plain (non-stream) object eligible for compaction into
// an object stream, carrying the object number it will be written under.
type objStmCandidate struct {
	num   uint32
	value types.Value
}

// xrefLoc is where an object ended up after writing, for xref-stream
// emission: either a direct byte offset, or a (container, index) pair inside
// an object stream.
type xrefLoc struct {
	Compressed       bool
	Offset           int64
	ContainerObjNum  uint32
	IndexInContainer int
}

func chunkObjStmCandidates(candidates []objStmCandidate, size int) [][]objStmCandidate {
	var chunks [][]objStmCandidate
	for len(candidates) > 0 {
		n := size
		if n > len(candidates) {
			n = len(candidates)
		}
		chunks = append(chunks, candidates[:n])
		candidates = candidates[n:]
	}
	return chunks
}

// writeObjectStream serializes group as a single compressed /ObjStm object
// under containerNum, and returns the container's own file offset plus the
// xrefLoc each member object resolves to within it.
func writeObjectStream(w *ioscan.ByteWriter, containerNum uint32, group []objStmCandidate) (int64, map[uint32]xrefLoc) {
	var data bytes.Buffer
	bodyOffsets := make([]int64, len(group))
	for i, cand := range group {
		bodyOffsets[i] = int64(data.Len())
		bw := ioscan.NewByteWriter()
		parser.WriteValue(bw, cand.value)
		data.Write(bw.Bytes())
		if i < len(group)-1 {
			data.WriteByte(' ')
		}
	}

	var header bytes.Buffer
	for i, cand := range group {
		if i > 0 {
			header.WriteByte(' ')
		}
		header.WriteString(strconv.FormatUint(uint64(cand.num), 10))
		header.WriteByte(' ')
		header.WriteString(strconv.FormatInt(bodyOffsets[i], 10))
	}
	first := header.Len() + 1

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	_, _ = zw.Write(header.Bytes())
	_, _ = zw.Write([]byte(" "))
	_, _ = zw.Write(data.Bytes())
	_ = zw.Close()

	dict := types.NewDict()
	dict.Set("Type", types.Name("ObjStm"))
	dict.Set("N", types.Int(int64(len(group))))
	dict.Set("First", types.Int(int64(first)))
	dict.Set("Filter", types.Name("FlateDecode"))

	offset := w.Pos()
	parser.WriteIndirectObject(w, containerNum, 0, types.StreamValue(&types.Stream{Dict: dict, Raw: compressed.Bytes()}))

	locs := make(map[uint32]xrefLoc, len(group))
	for i, cand := range group {
		locs[cand.num] = xrefLoc{Compressed: true, ContainerObjNum: containerNum, IndexInContainer: i}
	}
	return offset, locs
}
