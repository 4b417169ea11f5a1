package types

import (
	"fmt"
	"sort"
	"strconv"
)

// Kind discriminates the Value tagged union.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindReal
	KindName
	KindLiteralString
	KindHexString
	KindArray
	KindDict
	KindStream
	KindRef
)

// Ref is a lightweight indirect-reference identifier: (object number,
// generation). It never owns the object it names, and it never nests
// inside another Ref - that invariant is enforced by Value only ever
// storing a Ref as a leaf.
type Ref struct {
	Num uint32
	Gen uint16
}

func (r Ref) String() string {
	return fmt.Sprintf("%d %d R", r.Num, r.Gen)
}

// Dict is an insertion-ordered map from PDF name (without the leading "/")
// to Value. Iteration via Keys() and Each() always observes insertion
// order, which is what makes byte-identical round-trips possible; Get/Set
// are O(1) via the side index.
type Dict struct {
	order []string
	index map[string]int
	vals  []Value
}

// NewDict creates an empty, ready-to-use Dict.
func NewDict() *Dict {
	return &Dict{index: make(map[string]int)}
}

// Set inserts or updates key. New keys are appended at the end, preserving
// the order existing keys were first seen in.
func (d *Dict) Set(key string, v Value) {
	if d.index == nil {
		d.index = make(map[string]int)
	}
	if i, ok := d.index[key]; ok {
		d.vals[i] = v
		return
	}
	d.index[key] = len(d.order)
	d.order = append(d.order, key)
	d.vals = append(d.vals, v)
}

// Get returns the value for key and whether it was present.
func (d *Dict) Get(key string) (Value, bool) {
	if d == nil {
		return Value{}, false
	}
	i, ok := d.index[key]
	if !ok {
		return Value{}, false
	}
	return d.vals[i], true
}

// Delete removes key if present, preserving the order of remaining keys.
func (d *Dict) Delete(key string) {
	i, ok := d.index[key]
	if !ok {
		return
	}
	d.order = append(d.order[:i], d.order[i+1:]...)
	d.vals = append(d.vals[:i], d.vals[i+1:]...)
	delete(d.index, key)
	for k, idx := range d.index {
		if idx > i {
			d.index[k] = idx - 1
		}
	}
}

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []string {
	if d == nil {
		return nil
	}
	return d.order
}

// Len returns the number of entries.
func (d *Dict) Len() int {
	if d == nil {
		return 0
	}
	return len(d.order)
}

// Each calls fn for every key/value pair in insertion order.
func (d *Dict) Each(fn func(key string, v Value)) {
	if d == nil {
		return
	}
	for i, k := range d.order {
		fn(k, d.vals[i])
	}
}

// Clone returns a shallow copy (nested Values are not deep-copied, but the
// ordering structure is independent of the original).
func (d *Dict) Clone() *Dict {
	if d == nil {
		return NewDict()
	}
	nd := &Dict{
		order: append([]string(nil), d.order...),
		vals:  append([]Value(nil), d.vals...),
		index: make(map[string]int, len(d.index)),
	}
	for k, v := range d.index {
		nd.index[k] = v
	}
	return nd
}

// SortedKeys returns keys sorted lexically; used only by diagnostics, never
// by serialization (which must preserve insertion order).
func (d *Dict) SortedKeys() []string {
	ks := append([]string(nil), d.Keys()...)
	sort.Strings(ks)
	return ks
}

// Stream is a Dict paired with payload bytes. Raw holds the bytes exactly as
// read from (or about to be written to) the file - i.e. still passed
// through whatever /Filter chain the dictionary names. Decoded, once
// populated by the stream-codec layer, holds the filtered-out payload.
type Stream struct {
	Dict    *Dict
	Raw     []byte
	decoded []byte
	hasDec  bool
}

// SetDecoded caches the decoded payload so repeated reads don't re-run the
// filter pipeline.
func (s *Stream) SetDecoded(b []byte) {
	s.decoded = b
	s.hasDec = true
}

// Decoded returns the cached decoded payload and whether it has been set.
func (s *Stream) Decoded() ([]byte, bool) {
	return s.decoded, s.hasDec
}

// Value is the PDF object model's tagged union. Zero value is Null.
type Value struct {
	kind Kind

	b   bool
	i   int64
	f   float64
	str []byte // Name / LiteralString / HexString payload
	arr []Value
	dct *Dict
	stm *Stream
	ref Ref
}

func Null() Value                     { return Value{kind: KindNull} }
func Bool(b bool) Value               { return Value{kind: KindBool, b: b} }
func Int(i int64) Value               { return Value{kind: KindInt, i: i} }
func Real(f float64) Value            { return Value{kind: KindReal, f: f} }
func Name(s string) Value             { return Value{kind: KindName, str: []byte(s)} }
func LiteralString(b []byte) Value    { return Value{kind: KindLiteralString, str: b} }
func HexString(b []byte) Value        { return Value{kind: KindHexString, str: b} }
func Array(vs []Value) Value          { return Value{kind: KindArray, arr: vs} }
func DictValue(d *Dict) Value         { return Value{kind: KindDict, dct: d} }
func StreamValue(s *Stream) Value     { return Value{kind: KindStream, stm: s} }
func IndirectRef(num uint32, gen uint16) Value {
	return Value{kind: KindRef, ref: Ref{Num: num, Gen: gen}}
}
func RefValue(r Ref) Value { return Value{kind: KindRef, ref: r} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Bool() (bool, bool)       { return v.b, v.kind == KindBool }
func (v Value) Int() (int64, bool)       { return v.i, v.kind == KindInt }
func (v Value) Real() (float64, bool) {
	if v.kind == KindReal {
		return v.f, true
	}
	if v.kind == KindInt {
		return float64(v.i), true
	}
	return 0, false
}
func (v Value) Name() (string, bool) {
	if v.kind != KindName {
		return "", false
	}
	return string(v.str), true
}
func (v Value) StringBytes() ([]byte, bool) {
	if v.kind != KindLiteralString && v.kind != KindHexString {
		return nil, false
	}
	return v.str, true
}
func (v Value) Array() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.arr, true
}
func (v Value) Dict() (*Dict, bool) {
	switch v.kind {
	case KindDict:
		return v.dct, true
	case KindStream:
		return v.stm.Dict, true
	default:
		return nil, false
	}
}
func (v Value) Stream() (*Stream, bool) {
	if v.kind != KindStream {
		return nil, false
	}
	return v.stm, true
}
func (v Value) Ref() (Ref, bool) {
	if v.kind != KindRef {
		return Ref{}, false
	}
	return v.ref, true
}

// WithStringBytes replaces the raw payload of a string Value without
// changing its literal/hex flavor. Used by the security handler to write
// back decrypted string content.
func (v Value) WithStringBytes(b []byte) Value {
	v.str = b
	return v
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindReal:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindName:
		return "/" + string(v.str)
	case KindLiteralString:
		return "(" + string(v.str) + ")"
	case KindHexString:
		return fmt.Sprintf("<%x>", v.str)
	case KindArray:
		return fmt.Sprintf("[%d items]", len(v.arr))
	case KindDict:
		return fmt.Sprintf("<<%d keys>>", v.dct.Len())
	case KindStream:
		return fmt.Sprintf("<<stream %d bytes>>", len(v.stm.Raw))
	case KindRef:
		return v.ref.String()
	default:
		return "?"
	}
}
