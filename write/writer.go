// Package write serializes a document back to PDF bytes, either as a full
// rewrite or as an incremental update that preserves the original bytes
// bit-exact.
package write

import (
	"crypto/rand"
	"sort"

	"github.com/benedoc-inc/pdfcore/document"
	"github.com/benedoc-inc/pdfcore/encryption"
	"github.com/benedoc-inc/pdfcore/ioscan"
	"github.com/benedoc-inc/pdfcore/parser"
	"github.com/benedoc-inc/pdfcore/types"
)

// Options controls how a document is serialized.
type Options struct {
	// Renumber re-numbers every object ascending from 1. Not required for
	// correctness; default preserves original object numbers.
	Renumber bool
	// UseXRefStream forces cross-reference-stream output instead of a
	// classic table. Both a full rewrite and an incremental update write a
	// classic table unless this is set; the format of the loaded document's
	// own xref sections is not consulted.
	UseXRefStream bool
	// CompressObjectStreams packs eligible plain objects (generation 0,
	// not the /Encrypt dictionary, not themselves a stream) into compressed
	// /ObjStm containers on a full rewrite, implying UseXRefStream since a
	// classic table cannot address a compressed object. Has no effect on an
	// encrypted document: compressed objects aren't individually
	// re-encrypted, so compaction and encryption are mutually exclusive.
	CompressObjectStreams bool
}

const binaryMarkerLine = "%\xE2\xE3\xCF\xD3\n"

// WriteFull serializes doc from scratch: header, every known and newly
// created object, a fresh cross-reference section, and a trailer.
func WriteFull(doc *document.Document, opts Options) ([]byte, error) {
	nums, gens := collectObjectNumbers(doc)

	var mapping map[uint32]types.Ref
	if opts.Renumber {
		mapping = buildRenumberMapping(nums)
	}

	w := ioscan.NewByteWriterWithCapacity(len(doc.RawBytes()) + 4096)
	w.WriteString("%PDF-" + doc.Version() + "\n")
	w.WriteString(binaryMarkerLine)

	offsets := make(map[uint32]int64, len(nums))
	handler := doc.Handler()
	encRef := doc.EncryptRef()
	compactStreams := opts.CompressObjectStreams && handler == nil
	useXRefStream := opts.UseXRefStream || compactStreams

	var candidates []objStmCandidate

	for _, num := range nums {
		gen := gens[num]
		entry, hasEntry := doc.XRef().Entries[num]
		if hasEntry && entry.Kind == types.EntryFree {
			continue
		}

		outNum, outGen := num, gen
		if mapping != nil {
			ref := mapping[num]
			outNum, outGen = ref.Num, ref.Gen
		}

		var v types.Value
		var err error
		if num == encRef.Num && encRef.Num != 0 {
			v = types.DictValue(buildEncryptDict(doc.Encryption()))
		} else {
			v, err = doc.GetObject(types.Ref{Num: num, Gen: gen})
			if err != nil {
				return nil, err
			}
			if mapping != nil {
				v = remapRefs(v, mapping)
			}
			if handler != nil && num != encRef.Num {
				v, err = encryptForOutput(handler, outNum, outGen, v)
				if err != nil {
					return nil, err
				}
			}
		}

		if compactStreams && outGen == 0 && outNum != encRef.Num && v.Kind() != types.KindStream {
			candidates = append(candidates, objStmCandidate{num: outNum, value: v})
			continue
		}

		offsets[outNum] = w.Pos()
		parser.WriteIndirectObject(w, outNum, outGen, v)
	}

	maxNum := doc.Registry().MaxObjectNumber()
	if mapping != nil {
		maxNum = uint32(len(nums))
	}

	locs := make(map[uint32]xrefLoc, len(offsets)+len(candidates))
	for num, off := range offsets {
		locs[num] = xrefLoc{Offset: off}
	}
	if len(candidates) > 0 {
		containerNum := maxNum + 1
		for _, group := range chunkObjStmCandidates(candidates, objStmMaxMembers) {
			containerOffset, memberLocs := writeObjectStream(w, containerNum, group)
			locs[containerNum] = xrefLoc{Offset: containerOffset}
			for n, loc := range memberLocs {
				locs[n] = loc
			}
			maxNum = containerNum
			containerNum++
		}
	}

	rootRef := remapSingleRef(doc.Trailer(), "Root", mapping)
	infoRef, hasInfo := remapSingleRefOK(doc.Trailer(), "Info", mapping)

	idFirst, idSecond := deriveFileID(doc)

	trailer := types.NewDict()
	trailer.Set("Size", types.Int(int64(maxNum)+1))
	if rootRef.Num != 0 {
		trailer.Set("Root", types.RefValue(rootRef))
	}
	if hasInfo {
		trailer.Set("Info", types.RefValue(infoRef))
	}
	if encRef.Num != 0 {
		outEncRef := encRef
		if mapping != nil {
			outEncRef = mapping[encRef.Num]
		}
		trailer.Set("Encrypt", types.RefValue(outEncRef))
	} else if doc.Encryption() != nil {
		trailer.Set("Encrypt", types.DictValue(buildEncryptDict(doc.Encryption())))
	}
	trailer.Set("ID", types.Array([]types.Value{
		types.HexString(idFirst),
		types.HexString(idSecond),
	}))

	var xrefOffset int64
	if useXRefStream {
		xrefOffset = writeXRefStreamSection(w, maxNum, locs, trailer)
	} else {
		xrefOffset = writeClassicXRefSection(w, maxNum, offsets)
		w.WriteString("trailer\n")
		parser.WriteValue(w, types.DictValue(trailer))
		w.WriteString("\n")
	}

	w.WriteString("startxref\n")
	w.WriteInt(xrefOffset)
	w.WriteString("\n%%EOF\n")

	return w.Bytes(), nil
}

// collectObjectNumbers returns every known object number (from the original
// xref table and from newly registered objects), ascending, along with the
// generation each was last known at.
func collectObjectNumbers(doc *document.Document) ([]uint32, map[uint32]uint16) {
	gens := make(map[uint32]uint16)
	seen := make(map[uint32]bool)
	var nums []uint32

	for num, e := range doc.XRef().Entries {
		if !seen[num] {
			seen[num] = true
			nums = append(nums, num)
		}
		gens[num] = e.Generation
	}
	for _, c := range doc.Registry().IterChanged() {
		if !seen[c.Ref.Num] {
			seen[c.Ref.Num] = true
			nums = append(nums, c.Ref.Num)
		}
		gens[c.Ref.Num] = c.Ref.Gen
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	return nums, gens
}

func buildRenumberMapping(nums []uint32) map[uint32]types.Ref {
	mapping := make(map[uint32]types.Ref, len(nums))
	next := uint32(1)
	for _, num := range nums {
		mapping[num] = types.Ref{Num: next, Gen: 0}
		next++
	}
	return mapping
}

func remapSingleRef(trailer *types.Dict, key string, mapping map[uint32]types.Ref) types.Ref {
	ref, _ := remapSingleRefOK(trailer, key, mapping)
	return ref
}

func remapSingleRefOK(trailer *types.Dict, key string, mapping map[uint32]types.Ref) (types.Ref, bool) {
	v, ok := trailer.Get(key)
	if !ok {
		return types.Ref{}, false
	}
	ref, ok := v.Ref()
	if !ok {
		return types.Ref{}, false
	}
	if mapping != nil {
		if mapped, ok := mapping[ref.Num]; ok {
			return mapped, true
		}
	}
	return ref, true
}

// remapRefs rewrites every Ref leaf within v according to mapping.
func remapRefs(v types.Value, mapping map[uint32]types.Ref) types.Value {
	switch v.Kind() {
	case types.KindRef:
		ref, _ := v.Ref()
		if mapped, ok := mapping[ref.Num]; ok {
			return types.RefValue(mapped)
		}
		return v
	case types.KindArray:
		items, _ := v.Array()
		out := make([]types.Value, len(items))
		for i, item := range items {
			out[i] = remapRefs(item, mapping)
		}
		return types.Array(out)
	case types.KindDict:
		d, _ := v.Dict()
		nd := types.NewDict()
		d.Each(func(key string, val types.Value) {
			nd.Set(key, remapRefs(val, mapping))
		})
		return types.DictValue(nd)
	case types.KindStream:
		stm, _ := v.Stream()
		ndVal := remapRefs(types.DictValue(stm.Dict), mapping)
		nd, _ := ndVal.Dict()
		return types.StreamValue(&types.Stream{Dict: nd, Raw: stm.Raw})
	default:
		return v
	}
}

// encryptForOutput mirrors the registry's decrypt pass in reverse: it
// encrypts every string and stream payload within v using the object key
// for (num, gen), skipping metadata streams when /EncryptMetadata is false.
func encryptForOutput(h *encryption.Handler, num uint32, gen uint16, v types.Value) (types.Value, error) {
	if h == nil {
		return v, nil
	}
	isMetadata := false
	if d, ok := v.Dict(); ok {
		if tv, ok := d.Get("Type"); ok {
			if name, _ := tv.Name(); name == "Metadata" {
				isMetadata = true
			}
		}
	}
	if h.NeverEncrypted(num, gen, false, isMetadata) {
		return v, nil
	}
	return encryptRecursive(h, num, gen, v)
}

func encryptRecursive(h *encryption.Handler, num uint32, gen uint16, v types.Value) (types.Value, error) {
	switch v.Kind() {
	case types.KindLiteralString, types.KindHexString:
		b, _ := v.StringBytes()
		enc, err := h.EncryptString(num, gen, b)
		if err != nil {
			return types.Value{}, err
		}
		return v.WithStringBytes(enc), nil
	case types.KindArray:
		items, _ := v.Array()
		out := make([]types.Value, len(items))
		for i, item := range items {
			ev, err := encryptRecursive(h, num, gen, item)
			if err != nil {
				return types.Value{}, err
			}
			out[i] = ev
		}
		return types.Array(out), nil
	case types.KindDict:
		d, _ := v.Dict()
		nd := types.NewDict()
		var outerErr error
		d.Each(func(key string, val types.Value) {
			if outerErr != nil {
				return
			}
			ev, err := encryptRecursive(h, num, gen, val)
			if err != nil {
				outerErr = err
				return
			}
			nd.Set(key, ev)
		})
		if outerErr != nil {
			return types.Value{}, outerErr
		}
		return types.DictValue(nd), nil
	case types.KindStream:
		stm, _ := v.Stream()
		ndVal, err := encryptRecursive(h, num, gen, types.DictValue(stm.Dict))
		if err != nil {
			return types.Value{}, err
		}
		nd, _ := ndVal.Dict()
		encRaw, err := h.EncryptStreamRaw(num, gen, stm.Raw)
		if err != nil {
			return types.Value{}, err
		}
		return types.StreamValue(&types.Stream{Dict: nd, Raw: encRaw}), nil
	default:
		return v, nil
	}
}

// buildEncryptDict reconstructs the literal /Encrypt dictionary from parsed
// parameters. Its /O, /U, /OE, /UE, /Perms byte strings are never run
// through the per-object crypt filter: they are already the ciphertext the
// Standard security handler expects.
func buildEncryptDict(enc *types.PDFEncryption) *types.Dict {
	d := types.NewDict()
	d.Set("Filter", types.Name("Standard"))
	d.Set("V", types.Int(int64(enc.V)))
	d.Set("R", types.Int(int64(enc.R)))
	d.Set("O", types.HexString(enc.O))
	d.Set("U", types.HexString(enc.U))
	d.Set("P", types.Int(int64(enc.P)))
	d.Set("Length", types.Int(int64(enc.KeyLength*8)))
	if !enc.EncryptMetadata {
		d.Set("EncryptMetadata", types.Bool(false))
	}
	if enc.R >= 5 {
		d.Set("OE", types.HexString(enc.OE))
		d.Set("UE", types.HexString(enc.UE))
		d.Set("Perms", types.HexString(enc.Perms))
	}
	if enc.V >= 4 {
		if enc.StmF != "" {
			d.Set("StmF", types.Name(enc.StmF))
		}
		if enc.StrF != "" {
			d.Set("StrF", types.Name(enc.StrF))
		}
		if len(enc.CF) > 0 {
			cf := types.NewDict()
			for name, desc := range enc.CF {
				entry := types.NewDict()
				entry.Set("CFM", types.Name(string(desc.CFM)))
				if desc.Length > 0 {
					entry.Set("Length", types.Int(int64(desc.Length)))
				}
				if desc.AuthEvent != "" {
					entry.Set("AuthEvent", types.Name(desc.AuthEvent))
				}
				cf.Set(name, types.DictValue(entry))
			}
			d.Set("CF", types.DictValue(cf))
		}
	}
	return d
}

// deriveFileID returns the two /ID elements to emit: the original first
// element preserved if one exists, a fresh second element always, or two
// identical fresh 16-byte values when the document had no /ID at all.
func deriveFileID(doc *document.Document) (first, second []byte) {
	second = randomID()
	if existing := doc.FileID(); len(existing) > 0 {
		return existing, second
	}
	return second, second
}

func randomID() []byte {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return b
}
