package ir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cil2cpp/aotc/internal/assembly"
	"github.com/cil2cpp/aotc/internal/reach"
)

func newBuilderForSpecialize() *Builder {
	return &Builder{
		Set:       &assembly.AssemblySet{},
		Reach:     &reach.Set{Types: map[*assembly.Type]bool{}},
		Mod:       &Module{},
		layouts:   map[*assembly.Type]*TypeLayout{},
		methods:   map[*assembly.Method]*MethodIR{},
		specCache: map[string]*Specialization{},
	}
}

func TestPass6SpecializeRecordsOneSpecializationPerDistinctInstantiation(t *testing.T) {
	asm := &assembly.Assembly{CanonicalName: "Game"}
	genType := &assembly.Type{Assembly: asm, Row: 1, FullName: "Game.Box`1", Kind: assembly.KindClass}
	ty := &assembly.Type{Assembly: asm, Row: 2, FullName: "Game.Program"}
	m1 := &assembly.Method{DeclaringType: ty, Row: 1, Name: "UseInt"}
	m2 := &assembly.Method{DeclaringType: ty, Row: 2, Name: "UseIntAgain"}

	instOf := func(kind ElementType) *SigType {
		return &SigType{Kind: ElemGenericInst, Generic: genType, GenericArgs: []*SigType{{Kind: kind}}}
	}
	mi1 := &MethodIR{Method: m1, Params: []ParamInfo{{Type: instOf(ElemI4)}}}
	mi2 := &MethodIR{Method: m2, Params: []ParamInfo{{Type: instOf(ElemI4)}}}

	b := newBuilderForSpecialize()
	b.methods[m1] = mi1
	b.methods[m2] = mi2

	b.pass6Specialize()

	require.Len(t, b.Mod.Specializations, 1)
	require.Same(t, genType, b.Mod.Specializations[0].GenericType)
	require.Len(t, b.Mod.Specializations[0].TypeArgs, 1)
	require.Nil(t, mi1.StubReason)
	require.Nil(t, mi2.StubReason)
}

func TestPass6SpecializeDistinctTypeArgsProduceDistinctSpecializations(t *testing.T) {
	asm := &assembly.Assembly{CanonicalName: "Game"}
	genType := &assembly.Type{Assembly: asm, Row: 1, FullName: "Game.Box`1", Kind: assembly.KindClass}
	ty := &assembly.Type{Assembly: asm, Row: 2, FullName: "Game.Program"}
	m1 := &assembly.Method{DeclaringType: ty, Row: 1, Name: "UseInt"}
	m2 := &assembly.Method{DeclaringType: ty, Row: 2, Name: "UseBool"}

	mi1 := &MethodIR{Method: m1, Params: []ParamInfo{{Type: &SigType{Kind: ElemGenericInst, Generic: genType, GenericArgs: []*SigType{{Kind: ElemI4}}}}}}
	mi2 := &MethodIR{Method: m2, Params: []ParamInfo{{Type: &SigType{Kind: ElemGenericInst, Generic: genType, GenericArgs: []*SigType{{Kind: ElemBoolean}}}}}}

	b := newBuilderForSpecialize()
	b.methods[m1] = mi1
	b.methods[m2] = mi2

	b.pass6Specialize()

	require.Len(t, b.Mod.Specializations, 2)
}

func TestPass6SpecializeUnresolvedGenericStubsReferencingMethod(t *testing.T) {
	asm := &assembly.Assembly{CanonicalName: "Game"}
	ty := &assembly.Type{Assembly: asm, Row: 1, FullName: "Game.Program"}
	m := &assembly.Method{DeclaringType: ty, Row: 1, Name: "UseUnresolved"}
	mi := &MethodIR{Method: m, Params: []ParamInfo{{Type: &SigType{Kind: ElemGenericInst, Generic: nil}}}}

	b := newBuilderForSpecialize()
	b.methods[m] = mi

	b.pass6Specialize()

	require.Empty(t, b.Mod.Specializations)
	require.NotNil(t, mi.StubReason)
	require.Equal(t, "clr-internal-type", mi.StubReason.Kind)
}

func TestPass6SpecializeWalksNestedArrayAndPointerElements(t *testing.T) {
	asm := &assembly.Assembly{CanonicalName: "Game"}
	genType := &assembly.Type{Assembly: asm, Row: 1, FullName: "Game.Box`1", Kind: assembly.KindClass}
	ty := &assembly.Type{Assembly: asm, Row: 2, FullName: "Game.Program"}
	m := &assembly.Method{DeclaringType: ty, Row: 1, Name: "UseNested"}

	nested := &SigType{Kind: ElemGenericInst, Generic: genType, GenericArgs: []*SigType{{Kind: ElemI4}}}
	arrayOfNested := &SigType{Kind: ElemSZArray, Elem: nested}
	mi := &MethodIR{Method: m, Ret: arrayOfNested}

	b := newBuilderForSpecialize()
	b.methods[m] = mi

	b.pass6Specialize()

	require.Len(t, b.Mod.Specializations, 1)
}
