package write

import (
	"fmt"
	"sort"

	"github.com/benedoc-inc/pdfcore/document"
	"github.com/benedoc-inc/pdfcore/ioscan"
	"github.com/benedoc-inc/pdfcore/parser"
	"github.com/benedoc-inc/pdfcore/types"
)

// WriteIncremental appends only new and modified objects after the original
// file bytes, leaving [0, len(original)) untouched so that any
// /ByteRange-covered signature over that span stays valid. It falls back to
// WriteFull, recording a warning on doc.Warnings, when a precondition that
// makes incremental output unsafe is violated: the document was linearized,
// its cross-reference table was brute-force recovered, or its encryption was
// added, removed, or changed since load.
func WriteIncremental(doc *document.Document, opts Options) ([]byte, error) {
	if code, reason, blocked := incrementalBlocked(doc); blocked {
		doc.Warnings.AddDowngrade(code, fmt.Sprintf("incremental update not safe (%s); falling back to full rewrite", reason))
		return WriteFull(doc, opts)
	}

	changed := doc.Registry().IterChanged()
	if len(changed) == 0 {
		return append([]byte(nil), doc.RawBytes()...), nil
	}

	w := ioscan.NewByteWriterWithCapacity(len(doc.RawBytes()) + 4096)
	w.WriteRaw(doc.RawBytes())
	if len(doc.RawBytes()) > 0 && doc.RawBytes()[len(doc.RawBytes())-1] != '\n' {
		w.WriteString("\n")
	}

	handler := doc.Handler()
	encRef := doc.EncryptRef()
	offsets := make(map[uint32]int64, len(changed))
	var maxNum uint32

	for _, c := range changed {
		if c.Ref.Num > maxNum {
			maxNum = c.Ref.Num
		}
		v := c.Value
		if c.Ref.Num == encRef.Num && encRef.Num != 0 {
			v = types.DictValue(buildEncryptDict(doc.Encryption()))
		} else if handler != nil {
			var err error
			v, err = encryptForOutput(handler, c.Ref.Num, c.Ref.Gen, v)
			if err != nil {
				return nil, err
			}
		}
		offsets[c.Ref.Num] = w.Pos()
		parser.WriteIndirectObject(w, c.Ref.Num, c.Ref.Gen, v)
	}

	if known := doc.Registry().MaxObjectNumber(); known > maxNum {
		maxNum = known
	}

	trailer := types.NewDict()
	trailer.Set("Size", types.Int(int64(maxNum)+1))
	if rootVal, ok := doc.Trailer().Get("Root"); ok {
		trailer.Set("Root", rootVal)
	}
	if infoVal, ok := doc.Trailer().Get("Info"); ok {
		trailer.Set("Info", infoVal)
	}
	if encRef.Num != 0 {
		trailer.Set("Encrypt", types.RefValue(encRef))
	}
	if idVal, ok := doc.Trailer().Get("ID"); ok {
		trailer.Set("ID", idVal)
	}
	trailer.Set("Prev", types.Int(doc.StartXRefOffset()))

	var xrefOffset int64
	if opts.UseXRefStream {
		locs := make(map[uint32]xrefLoc, len(offsets))
		for num, off := range offsets {
			locs[num] = xrefLoc{Offset: off}
		}
		xrefOffset = writeXRefStreamSection(w, maxNum, locs, trailer)
	} else {
		xrefOffset = writeIncrementalClassicXRef(w, offsets)
		w.WriteString("trailer\n")
		parser.WriteValue(w, types.DictValue(trailer))
		w.WriteString("\n")
	}

	w.WriteString("startxref\n")
	w.WriteInt(xrefOffset)
	w.WriteString("\n%%EOF\n")

	return w.Bytes(), nil
}

// incrementalBlocked reports whether doc fails one of the preconditions for
// a safe incremental update, and if so, the PDFErrorCode that classifies the
// violated precondition plus a short human-readable reason.
func incrementalBlocked(doc *document.Document) (types.PDFErrorCode, string, bool) {
	if doc.Linearized() {
		return types.ErrCodeLinearizedIncrementalRefused, "document is linearized", true
	}
	if doc.Recovered() {
		return types.ErrCodeRecoveredIncrementalRefused, "cross-reference table was brute-force recovered", true
	}
	if encryptionChanged(doc) {
		return types.ErrCodeEncryptionChangedIncrementalRefused, "encryption was added, removed, or changed since load", true
	}
	return "", "", false
}

// encryptionChanged reports whether the document's encryption state at save
// time differs from what was authenticated at load: the trailer's /Encrypt
// entry was added or removed outright, or the /Encrypt dictionary itself was
// mutated (a ref flagged dirty by the registry). An incremental update can't
// safely express either case, since the objects already on disk were
// encrypted (or not) under the key that was in effect at load.
func encryptionChanged(doc *document.Document) bool {
	_, hasNow := doc.Trailer().Get("Encrypt")
	if hasNow != doc.IsEncrypted() {
		return true
	}
	encRef := doc.EncryptRef()
	if encRef.Num == 0 {
		return false
	}
	for _, c := range doc.Registry().IterChanged() {
		if c.Ref.Num == encRef.Num {
			return true
		}
	}
	return false
}

// writeIncrementalClassicXRef emits a classic xref section covering only the
// objects touched in this update, as one subsection per contiguous run of
// object numbers (the common case is one run of newly registered objects
// plus scattered modified ones, so runs are usually short).
func writeIncrementalClassicXRef(w *ioscan.ByteWriter, offsets map[uint32]int64) int64 {
	start := w.Pos()
	nums := make([]uint32, 0, len(offsets))
	for num := range offsets {
		nums = append(nums, num)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })

	w.WriteString("xref\n")
	i := 0
	for i < len(nums) {
		j := i + 1
		for j < len(nums) && nums[j] == nums[j-1]+1 {
			j++
		}
		w.WriteInt(int64(nums[i]))
		w.WriteByte(' ')
		w.WriteInt(int64(j - i))
		w.WriteByte('\n')
		for k := i; k < j; k++ {
			w.WritePadded(offsets[nums[k]], 10)
			w.WriteString(" 00000 n \n")
		}
		i = j
	}
	return start
}
