package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/benedoc-inc/pdfcore/types"
)

func buildBuf(objs map[uint32]string) ([]byte, map[uint32]types.ObjectEntry) {
	var buf []byte
	entries := make(map[uint32]types.ObjectEntry)
	for num := uint32(1); num <= uint32(len(objs)); num++ {
		entries[num] = types.ObjectEntry{Kind: types.EntryInUse, Offset: int64(len(buf))}
		buf = append(buf, []byte(objs[num])...)
	}
	return buf, entries
}

func TestResolveLoadsFromOffset(t *testing.T) {
	objs := map[uint32]string{
		1: "1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n",
		2: "2 0 obj\n<< /Type /Pages /Kids [] /Count 0 >>\nendobj\n",
	}
	buf, entries := buildBuf(objs)
	reg := New(buf, entries, nil, false)

	v, err := reg.Resolve(types.Ref{Num: 1, Gen: 0})
	require.NoError(t, err)
	d, ok := v.Dict()
	require.True(t, ok, "expected a dict")
	tv, _ := d.Get("Type")
	name, _ := tv.Name()
	require.Equal(t, "Catalog", name)
}

func TestResolveIsIdempotent(t *testing.T) {
	objs := map[uint32]string{1: "1 0 obj\n(hello)\nendobj\n"}
	buf, entries := buildBuf(objs)
	reg := New(buf, entries, nil, false)

	v1, err := reg.Resolve(types.Ref{Num: 1, Gen: 0})
	require.NoError(t, err)
	v2, err := reg.Resolve(types.Ref{Num: 1, Gen: 0})
	require.NoError(t, err)
	b1, _ := v1.StringBytes()
	b2, _ := v2.StringBytes()
	require.Equal(t, string(b1), string(b2), "Resolve should be idempotent")
}

func TestResolveFreeEntryReturnsNull(t *testing.T) {
	reg := New(nil, map[uint32]types.ObjectEntry{
		3: {Kind: types.EntryFree, NextFree: 0},
	}, nil, false)
	v, err := reg.Resolve(types.Ref{Num: 3, Gen: 0})
	require.NoError(t, err)
	require.True(t, v.IsNull(), "free entry should resolve to Null")
}

func TestRegisterAllocatesNextNumber(t *testing.T) {
	objs := map[uint32]string{1: "1 0 obj\nnull\nendobj\n"}
	buf, entries := buildBuf(objs)
	reg := New(buf, entries, nil, false)

	ref := reg.Register(types.Int(42))
	require.Equal(t, uint32(2), ref.Num)
	v, _ := reg.Resolve(ref)
	i, _ := v.Int()
	require.Equal(t, int64(42), i)
}

func TestIterChangedOrdersByObjectNumberAscending(t *testing.T) {
	reg := New(nil, nil, nil, false)
	refC := reg.Register(types.Int(3))
	refA := reg.Register(types.Int(1))
	_ = refA
	reg.MarkDirty(refC)

	changed := reg.IterChanged()
	require.Len(t, changed, 2)
	require.Less(t, changed[0].Ref.Num, changed[1].Ref.Num, "IterChanged() not ascending")
}

func TestMutateMarksDirtyButResolveDoesNot(t *testing.T) {
	objs := map[uint32]string{1: "1 0 obj\n(x)\nendobj\n"}
	buf, entries := buildBuf(objs)
	reg := New(buf, entries, nil, false)
	ref := types.Ref{Num: 1, Gen: 0}

	_, err := reg.Resolve(ref)
	require.NoError(t, err)
	require.Empty(t, reg.IterChanged(), "plain Resolve should not mark the object dirty")

	_, err = reg.Mutate(ref)
	require.NoError(t, err)
	changed := reg.IterChanged()
	require.Len(t, changed, 1)
	require.Equal(t, ref, changed[0].Ref)
}

func TestGetEntryReturnsMostRecentXrefEntry(t *testing.T) {
	reg := New(nil, map[uint32]types.ObjectEntry{
		5: {Kind: types.EntryInUse, Offset: 100, Generation: 2},
	}, nil, false)
	e, ok := reg.GetEntry(types.Ref{Num: 5})
	require.True(t, ok)
	require.Equal(t, int64(100), e.Offset)
	require.Equal(t, uint16(2), e.Generation)

	_, ok = reg.GetEntry(types.Ref{Num: 99})
	require.False(t, ok, "GetEntry should report false for unknown object numbers")
}
