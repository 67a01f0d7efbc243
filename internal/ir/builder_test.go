package ir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cil2cpp/aotc/internal/assembly"
)

func TestSortedTypesOrdersByAssemblyThenRow(t *testing.T) {
	asmA := &assembly.Assembly{CanonicalName: "A"}
	asmB := &assembly.Assembly{CanonicalName: "B"}
	t1 := &assembly.Type{Assembly: asmB, Row: 1}
	t2 := &assembly.Type{Assembly: asmA, Row: 5}
	t3 := &assembly.Type{Assembly: asmA, Row: 2}

	out := sortedTypes(map[*assembly.Type]bool{t1: true, t2: true, t3: true})
	require.Equal(t, []*assembly.Type{t3, t2, t1}, out)
}

func TestOrderedMethodIRsOrdersByAssemblyTypeThenMethodRow(t *testing.T) {
	asm := &assembly.Assembly{CanonicalName: "Game"}
	tyA := &assembly.Type{Assembly: asm, Row: 1}
	tyB := &assembly.Type{Assembly: asm, Row: 2}

	m1 := &assembly.Method{DeclaringType: tyB, Row: 1}
	m2 := &assembly.Method{DeclaringType: tyA, Row: 9}
	m3 := &assembly.Method{DeclaringType: tyA, Row: 2}

	mi1 := &MethodIR{Method: m1}
	mi2 := &MethodIR{Method: m2}
	mi3 := &MethodIR{Method: m3}

	b := &Builder{methods: map[*assembly.Method]*MethodIR{m1: mi1, m2: mi2, m3: mi3}}
	out := b.orderedMethodIRs()
	require.Equal(t, []*MethodIR{mi3, mi2, mi1}, out)
}

func TestStubFirstReasonWins(t *testing.T) {
	asm := &assembly.Assembly{CanonicalName: "Game"}
	ty := &assembly.Type{Assembly: asm, Row: 1}
	m := &assembly.Method{DeclaringType: ty, Row: 1, Name: "Foo"}
	mi := &MethodIR{Method: m}
	b := &Builder{Mod: &Module{}}

	b.stub(mi, "UnknownParameterTypes", "first")
	b.stub(mi, "UndeclaredFunction", "second")

	require.Equal(t, "UnknownParameterTypes", mi.StubReason.Kind)
	require.Equal(t, "first", mi.StubReason.Detail)
	require.Len(t, b.Mod.Stubs, 1)
}

func TestIsGCReference(t *testing.T) {
	require.True(t, isGCReference(&SigType{Kind: ElemString}))
	require.True(t, isGCReference(&SigType{Kind: ElemObject}))
	require.True(t, isGCReference(&SigType{Kind: ElemSZArray}))
	require.False(t, isGCReference(&SigType{Kind: ElemI4}))
	require.False(t, isGCReference(&SigType{Kind: ElemPtr}))
}

func TestIsGCReferenceGenericInstDependsOnValueTypeKind(t *testing.T) {
	class := &assembly.Type{Kind: assembly.KindClass}
	value := &assembly.Type{Kind: assembly.KindValueType}
	require.True(t, isGCReference(&SigType{Kind: ElemGenericInst, Generic: class}))
	require.False(t, isGCReference(&SigType{Kind: ElemGenericInst, Generic: value}))
	require.False(t, isGCReference(&SigType{Kind: ElemGenericInst, Generic: nil}))
}
