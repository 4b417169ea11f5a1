// Package registry maps (object number, generation) pairs to loaded PDF
// objects, resolving lazily from the byte buffer via the xref entries
// discovered at load time, and tracking which objects have been created or
// modified since then.
package registry

import (
	"sort"
	"sync"

	"github.com/benedoc-inc/pdfcore/ioscan"
	"github.com/benedoc-inc/pdfcore/parser"
	"github.com/benedoc-inc/pdfcore/types"
)

// Decryptor is satisfied by the security handler; the registry calls it to
// decrypt string and stream payloads as objects are loaded from disk. A nil
// Decryptor means the document is unencrypted.
type Decryptor interface {
	DecryptString(num uint32, gen uint16, b []byte) ([]byte, error)
	DecryptStreamRaw(num uint32, gen uint16, raw []byte) ([]byte, error)
	// NeverEncrypted reports whether this object (identified by its
	// already-loaded top-level dict) is one of the exceptions that are
	// never encrypted regardless of the document's crypt filters:
	// the /Encrypt dictionary itself, xref streams, and - when
	// /EncryptMetadata is false - metadata streams.
	NeverEncrypted(num uint32, gen uint16, isXRefStream bool, isMetadata bool) bool
}

// slot is one registry entry: either unloaded (with an xref location) or
// loaded (caching the parsed Value).
type slot struct {
	entry    types.ObjectEntry
	hasEntry bool
	loaded   bool
	value    types.Value
	isNew    bool
}

// Registry is the authoritative (object number, generation) -> object map
// for one document.
type Registry struct {
	mu sync.Mutex

	buf       []byte
	decryptor Decryptor
	verbose   bool

	slots   map[uint32]*slot
	dirty   map[uint32]bool
	nextNum uint32

	containerCache map[uint32]map[uint32]types.Value // objStm num -> (obj num -> value)
}

// New builds a Registry over buf using the given effective xref entries.
// decryptor may be nil for unencrypted documents.
func New(buf []byte, entries map[uint32]types.ObjectEntry, decryptor Decryptor, verbose bool) *Registry {
	r := &Registry{
		buf:            buf,
		decryptor:      decryptor,
		verbose:        verbose,
		slots:          make(map[uint32]*slot, len(entries)),
		dirty:          make(map[uint32]bool),
		containerCache: make(map[uint32]map[uint32]types.Value),
	}
	var maxNum uint32
	for num, e := range entries {
		r.slots[num] = &slot{entry: e, hasEntry: true}
		if num > maxNum {
			maxNum = num
		}
	}
	r.nextNum = maxNum + 1
	return r
}

// GetEntry returns the most recent xref entry recorded for ref.Num.
func (r *Registry) GetEntry(ref types.Ref) (types.ObjectEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[ref.Num]
	if !ok || !s.hasEntry {
		return types.ObjectEntry{}, false
	}
	return s.entry, true
}

// Resolve returns the value for ref, loading it from disk on first access.
// A free or unknown entry resolves to Null. Resolution is idempotent: the
// same ref always returns the same cached Value after the first call.
func (r *Registry) Resolve(ref types.Ref) (types.Value, error) {
	r.mu.Lock()
	s, ok := r.slots[ref.Num]
	if !ok {
		r.mu.Unlock()
		return types.Null(), nil
	}
	if s.loaded {
		v := s.value
		r.mu.Unlock()
		return v, nil
	}
	entry := s.entry
	r.mu.Unlock()

	var v types.Value
	var err error
	switch entry.Kind {
	case types.EntryFree:
		v = types.Null()
	case types.EntryInUse:
		v, err = r.loadFromOffset(ref.Num, entry.Generation, entry.Offset)
	case types.EntryCompressed:
		v, err = r.loadFromContainer(ref.Num, entry.ContainerObjNum, entry.IndexInContainer)
	default:
		v = types.Null()
	}
	if err != nil {
		return types.Value{}, err
	}

	r.mu.Lock()
	s.loaded = true
	s.value = v
	r.mu.Unlock()
	return v, nil
}

func (r *Registry) loadFromOffset(num uint32, gen uint16, offset int64) (types.Value, error) {
	if offset < 0 || int(offset) >= len(r.buf) {
		return types.Value{}, types.NewPDFErrorf(types.ErrCodeObjectNotFound,
			"object %d %d: offset %d out of range", num, gen, offset)
	}
	s := ioscan.NewScannerAt(r.buf, int(offset))
	hdr, err := parser.ParseIndirectObjectHeader(s)
	if err != nil {
		return types.Value{}, types.WrapErrorf(types.ErrCodeInvalidObject, err,
			"object %d %d: malformed header at offset %d", num, gen, offset)
	}
	if hdr.Num != num {
		return types.Value{}, types.NewPDFErrorf(types.ErrCodeInvalidObject,
			"object %d %d: xref offset points at object %d instead", num, gen, hdr.Num)
	}

	v, err := parser.ParseIndirectObjectBody(s, nil)
	if err != nil {
		return types.Value{}, types.WrapErrorf(types.ErrCodeInvalidObject, err,
			"object %d %d: failed to parse body", num, gen)
	}

	return r.decryptValue(num, gen, v)
}

func (r *Registry) decryptValue(num uint32, gen uint16, v types.Value) (types.Value, error) {
	if r.decryptor == nil {
		return v, nil
	}
	isXRefStream := false
	isMetadata := false
	if d, ok := v.Dict(); ok {
		if tv, ok := d.Get("Type"); ok {
			if name, _ := tv.Name(); name == "XRef" {
				isXRefStream = true
			}
			if name, _ := tv.Name(); name == "Metadata" {
				isMetadata = true
			}
		}
	}
	if r.decryptor.NeverEncrypted(num, gen, isXRefStream, isMetadata) {
		return v, nil
	}
	return decryptRecursive(r.decryptor, num, gen, v)
}

func decryptRecursive(dec Decryptor, num uint32, gen uint16, v types.Value) (types.Value, error) {
	switch v.Kind() {
	case types.KindLiteralString, types.KindHexString:
		b, _ := v.StringBytes()
		plain, err := dec.DecryptString(num, gen, b)
		if err != nil {
			return types.Value{}, err
		}
		return v.WithStringBytes(plain), nil
	case types.KindArray:
		items, _ := v.Array()
		out := make([]types.Value, len(items))
		for i, item := range items {
			dv, err := decryptRecursive(dec, num, gen, item)
			if err != nil {
				return types.Value{}, err
			}
			out[i] = dv
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
			dv, err := decryptRecursive(dec, num, gen, val)
			if err != nil {
				outerErr = err
				return
			}
			nd.Set(key, dv)
		})
		if outerErr != nil {
			return types.Value{}, outerErr
		}
		return types.DictValue(nd), nil
	case types.KindStream:
		stm, _ := v.Stream()
		ndVal, err := decryptRecursive(dec, num, gen, types.DictValue(stm.Dict))
		if err != nil {
			return types.Value{}, err
		}
		nd, _ := ndVal.Dict()
		plainRaw, err := dec.DecryptStreamRaw(num, gen, stm.Raw)
		if err != nil {
			return types.Value{}, err
		}
		return types.StreamValue(&types.Stream{Dict: nd, Raw: plainRaw}), nil
	default:
		return v, nil
	}
}

// loadFromContainer resolves an object that lives packed inside an object
// stream (a "compressed" xref entry).
func (r *Registry) loadFromContainer(num, containerNum, index uint32) (types.Value, error) {
	r.mu.Lock()
	cached, ok := r.containerCache[containerNum]
	r.mu.Unlock()
	if !ok {
		objs, err := r.unpackContainer(containerNum)
		if err != nil {
			return types.Value{}, err
		}
		r.mu.Lock()
		r.containerCache[containerNum] = objs
		r.mu.Unlock()
		cached = objs
	}
	v, ok := cached[num]
	if !ok {
		return types.Value{}, types.NewPDFErrorf(types.ErrCodeObjectNotFound,
			"object %d not present in object stream %d", num, containerNum)
	}
	return v, nil
}

func (r *Registry) unpackContainer(containerNum uint32) (map[uint32]types.Value, error) {
	containerVal, err := r.Resolve(types.Ref{Num: containerNum, Gen: 0})
	if err != nil {
		return nil, err
	}
	stm, ok := containerVal.Stream()
	if !ok {
		return nil, types.NewPDFErrorf(types.ErrCodeInvalidObject,
			"object stream %d is not a stream", containerNum)
	}
	nVal, _ := stm.Dict.Get("N")
	n, _ := nVal.Int()
	firstVal, _ := stm.Dict.Get("First")
	first, _ := firstVal.Int()

	decoded, err := parser.DecodeStream(stm)
	if err != nil {
		return nil, types.WrapErrorf(types.ErrCodeStreamError, err,
			"failed to decode object stream %d", containerNum)
	}

	headerScanner := ioscan.NewScannerAt(decoded, 0)
	type pair struct {
		num    uint32
		offset int64
	}
	pairs := make([]pair, 0, n)
	for i := int64(0); i < n; i++ {
		headerScanner.SkipWhitespace()
		objNum, ok := headerScanner.ReadDecimal()
		if !ok {
			break
		}
		headerScanner.SkipWhitespace()
		off, ok := headerScanner.ReadDecimal()
		if !ok {
			break
		}
		pairs = append(pairs, pair{num: uint32(objNum), offset: off})
	}

	objs := make(map[uint32]types.Value, len(pairs))
	for _, p := range pairs {
		objOffset := int(first) + int(p.offset)
		if objOffset < 0 || objOffset > len(decoded) {
			continue
		}
		s := ioscan.NewScannerAt(decoded, objOffset)
		v, err := parser.ParseValue(s)
		if err != nil {
			continue
		}
		objs[p.num] = v
	}
	return objs, nil
}

// Register allocates a fresh object number (generation 0), stores value as
// loaded, and marks it newly created.
func (r *Registry) Register(value types.Value) types.Ref {
	r.mu.Lock()
	defer r.mu.Unlock()
	num := r.nextNum
	r.nextNum++
	r.slots[num] = &slot{loaded: true, value: value, isNew: true}
	r.dirty[num] = true
	return types.Ref{Num: num, Gen: 0}
}

// MarkDirty records that ref's object has been modified. Idempotent.
func (r *Registry) MarkDirty(ref types.Ref) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dirty[ref.Num] = true
}

// Mutate resolves ref, marks it dirty, and returns the current value for
// the caller to replace via Replace. This is the registry's "acquire
// mutable access" operation: resolving alone never dirties an object.
func (r *Registry) Mutate(ref types.Ref) (types.Value, error) {
	v, err := r.Resolve(ref)
	if err != nil {
		return types.Value{}, err
	}
	r.MarkDirty(ref)
	return v, nil
}

// Replace overwrites the cached value for ref (used after mutating a Dict or
// Array obtained via Mutate, or to install a brand new value for an existing
// ref) and marks it dirty.
func (r *Registry) Replace(ref types.Ref, value types.Value) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[ref.Num]
	if !ok {
		s = &slot{}
		r.slots[ref.Num] = s
	}
	s.loaded = true
	s.value = value
	r.dirty[ref.Num] = true
}

// Changed is one entry yielded by IterChanged.
type Changed struct {
	Ref   types.Ref
	Value types.Value
	IsNew bool
}

// IterChanged returns every newly created object and every dirty loaded
// object, ordered by ascending object number so that writer output is
// deterministic regardless of mutation order.
func (r *Registry) IterChanged() []Changed {
	r.mu.Lock()
	defer r.mu.Unlock()
	nums := make([]uint32, 0, len(r.dirty))
	for num := range r.dirty {
		nums = append(nums, num)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })

	out := make([]Changed, 0, len(nums))
	for _, num := range nums {
		s := r.slots[num]
		if s == nil || !s.loaded {
			continue
		}
		gen := uint16(0)
		if s.hasEntry {
			gen = s.entry.Generation
		}
		out = append(out, Changed{Ref: types.Ref{Num: num, Gen: gen}, Value: s.value, IsNew: s.isNew})
	}
	return out
}

// MaxObjectNumber returns the highest object number known to the registry,
// new or original.
func (r *Registry) MaxObjectNumber() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.nextNum == 0 {
		return 0
	}
	return r.nextNum - 1
}

