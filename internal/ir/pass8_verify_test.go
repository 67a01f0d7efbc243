package ir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cil2cpp/aotc/internal/assembly"
	"github.com/cil2cpp/aotc/internal/reach"
)

func TestTypeResolvableNilAndPrimitiveAlwaysTrue(t *testing.T) {
	b := &Builder{layouts: map[*assembly.Type]*TypeLayout{}}
	require.True(t, b.typeResolvable(nil))
	require.True(t, b.typeResolvable(&SigType{Kind: ElemI4}))
	require.True(t, b.typeResolvable(&SigType{Kind: ElemVar, Index: 0}))
}

func TestTypeResolvableClassRequiresLayout(t *testing.T) {
	asm := &assembly.Assembly{CanonicalName: "Game"}
	ty := &assembly.Type{Assembly: asm, Row: 1, FullName: "Game.Widget"}
	b := &Builder{layouts: map[*assembly.Type]*TypeLayout{}}

	require.False(t, b.typeResolvable(&SigType{Kind: ElemClass, Class: ty}))
	require.False(t, b.typeResolvable(&SigType{Kind: ElemClass, Class: nil}))

	b.layouts[ty] = &TypeLayout{Type: ty}
	require.True(t, b.typeResolvable(&SigType{Kind: ElemClass, Class: ty}))
}

func TestTypeResolvableRecursesThroughArrayAndPointer(t *testing.T) {
	asm := &assembly.Assembly{CanonicalName: "Game"}
	ty := &assembly.Type{Assembly: asm, Row: 1, FullName: "Game.Widget"}
	b := &Builder{layouts: map[*assembly.Type]*TypeLayout{}}

	elem := &SigType{Kind: ElemClass, Class: ty}
	require.False(t, b.typeResolvable(&SigType{Kind: ElemSZArray, Elem: elem}))
	require.False(t, b.typeResolvable(&SigType{Kind: ElemPtr, Elem: elem}))

	b.layouts[ty] = &TypeLayout{Type: ty}
	require.True(t, b.typeResolvable(&SigType{Kind: ElemSZArray, Elem: elem}))
	require.True(t, b.typeResolvable(&SigType{Kind: ElemByRef, Elem: elem}))
}

func TestPass8VerifyStubsMethodWithUnresolvedReturnType(t *testing.T) {
	asm := &assembly.Assembly{CanonicalName: "Game"}
	ty := &assembly.Type{Assembly: asm, Row: 1, FullName: "Game.Widget"}
	m := &assembly.Method{DeclaringType: ty, Row: 1, Name: "Make"}
	mi := &MethodIR{Method: m, Ret: &SigType{Kind: ElemClass, Class: ty}}

	b := &Builder{
		Reach:   &reach.Set{},
		Mod:     &Module{},
		layouts: map[*assembly.Type]*TypeLayout{},
		methods: map[*assembly.Method]*MethodIR{m: mi},
	}

	b.pass8Verify()

	require.NotNil(t, mi.StubReason)
	require.Equal(t, "missing-reference", mi.StubReason.Kind)
}

func TestPass8VerifySkipsAlreadyStubbedMethods(t *testing.T) {
	asm := &assembly.Assembly{CanonicalName: "Game"}
	ty := &assembly.Type{Assembly: asm, Row: 1, FullName: "Game.Widget"}
	m := &assembly.Method{DeclaringType: ty, Row: 1, Name: "Make"}
	existing := &StubReason{Kind: "clr-internal-type", Method: m, Detail: "already stubbed"}
	mi := &MethodIR{Method: m, StubReason: existing, Ret: &SigType{Kind: ElemClass, Class: ty}}

	b := &Builder{
		Reach:   &reach.Set{},
		Mod:     &Module{},
		layouts: map[*assembly.Type]*TypeLayout{},
		methods: map[*assembly.Method]*MethodIR{m: mi},
	}

	b.pass8Verify()

	require.Same(t, existing, mi.StubReason)
}

func TestPass8VerifyPassesResolvedTypes(t *testing.T) {
	asm := &assembly.Assembly{CanonicalName: "Game"}
	ty := &assembly.Type{Assembly: asm, Row: 1, FullName: "Game.Widget"}
	m := &assembly.Method{DeclaringType: ty, Row: 1, Name: "Make"}
	mi := &MethodIR{
		Method: m,
		Ret:    &SigType{Kind: ElemI4},
		Params: []ParamInfo{{Type: &SigType{Kind: ElemClass, Class: ty}}},
	}

	b := &Builder{
		Reach:   &reach.Set{},
		Mod:     &Module{},
		layouts: map[*assembly.Type]*TypeLayout{ty: {Type: ty}},
		methods: map[*assembly.Method]*MethodIR{m: mi},
	}

	b.pass8Verify()

	require.Nil(t, mi.StubReason)
}
