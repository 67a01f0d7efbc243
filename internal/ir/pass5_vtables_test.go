package ir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cil2cpp/aotc/internal/assembly"
)

func TestSortedVirtualMethodsFiltersAndOrdersByRow(t *testing.T) {
	ty := &assembly.Type{}
	v2 := &assembly.Method{Name: "B", Row: 2, IsVirtual: true}
	nonVirtual := &assembly.Method{Name: "C", Row: 1, IsVirtual: false}
	v1 := &assembly.Method{Name: "A", Row: 1, IsVirtual: true}
	ty.Methods = []*assembly.Method{v2, nonVirtual, v1}

	out := sortedVirtualMethods(ty)
	require.Equal(t, []*assembly.Method{v1, v2}, out)
}

func TestSortMethodsByRowDoesNotMutateInput(t *testing.T) {
	m2 := &assembly.Method{Row: 2}
	m1 := &assembly.Method{Row: 1}
	in := []*assembly.Method{m2, m1}

	out := sortMethodsByRow(in)
	require.Equal(t, []*assembly.Method{m1, m2}, out)
	require.Equal(t, []*assembly.Method{m2, m1}, in)
}

func TestVTableForSingleTypeAssignsSequentialSlots(t *testing.T) {
	asm := &assembly.Assembly{CanonicalName: "Game"}
	ty := &assembly.Type{Assembly: asm, Row: 1, FullName: "Game.Base"}
	m1 := &assembly.Method{DeclaringType: ty, Row: 1, Name: "Foo", IsVirtual: true}
	m2 := &assembly.Method{DeclaringType: ty, Row: 2, Name: "Bar", IsVirtual: true}
	ty.Methods = []*assembly.Method{m1, m2}

	b := &Builder{}
	vt, err := b.vtableFor(ty, map[*assembly.Type]bool{})
	require.NoError(t, err)
	require.Len(t, vt.Slots, 2)
	require.Equal(t, 0, vt.Slots[0].Index)
	require.Same(t, m1, vt.Slots[0].Method)
	require.Equal(t, 1, vt.Slots[1].Index)
	require.Same(t, m2, vt.Slots[1].Method)
}

func TestVTableForIsCachedAcrossCalls(t *testing.T) {
	asm := &assembly.Assembly{CanonicalName: "Game"}
	ty := &assembly.Type{Assembly: asm, Row: 1, FullName: "Game.Base"}

	b := &Builder{}
	vt1, err := b.vtableFor(ty, map[*assembly.Type]bool{})
	require.NoError(t, err)
	vt2, err := b.vtableFor(ty, map[*assembly.Type]bool{})
	require.NoError(t, err)
	require.Same(t, vt1, vt2)
}

func TestVTableForWithoutBaseIgnoresOverrideLogic(t *testing.T) {
	// HasBase=false means pass5's base-chain walk never runs, exercising
	// the no-inheritance path without needing a real AssemblySet.
	asm := &assembly.Assembly{CanonicalName: "Game"}
	ty := &assembly.Type{Assembly: asm, Row: 1, FullName: "Game.Leaf", HasBase: false}
	m := &assembly.Method{DeclaringType: ty, Row: 1, Name: "Foo", Params: []*assembly.Param{{Name: "x"}}, IsVirtual: true}
	ty.Methods = []*assembly.Method{m}

	b := &Builder{}
	vt, err := b.vtableFor(ty, map[*assembly.Type]bool{})
	require.NoError(t, err)
	require.Len(t, vt.Slots, 1)
	require.Same(t, m, vt.Slots[0].Method)
}
