package irtext

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cil2cpp/aotc/internal/assembly"
	"github.com/cil2cpp/aotc/internal/il"
	"github.com/cil2cpp/aotc/internal/ir"
)

func TestOpcodeNameKnownMnemonics(t *testing.T) {
	require.Equal(t, "add", opcodeName(il.Add))
	require.Equal(t, "callvirt", opcodeName(il.Callvirt))
	require.Equal(t, "ldarg", opcodeName(il.Ldarg0))
	require.Equal(t, "ldarg", opcodeName(il.LdargS))
}

func TestOpcodeNameFallsBackForUnnamedOpcode(t *testing.T) {
	require.Equal(t, "op_999", opcodeName(il.Opcode(999)))
}

func TestRenderIncludesTypeAndFunctionSections(t *testing.T) {
	asm := &assembly.Assembly{CanonicalName: "Game"}
	ty := &assembly.Type{Assembly: asm, Row: 1, FullName: "Game.Player", Kind: assembly.KindClass}
	field := &assembly.Field{DeclaringType: ty, Name: "hp"}
	layout := &ir.TypeLayout{
		Type: ty,
		Size: 16,
		Fields: []ir.FieldLayout{
			{Field: field, Type: &ir.SigType{Kind: ir.ElemI4}, Offset: 8},
		},
	}

	method := &assembly.Method{DeclaringType: ty, Row: 1, Name: "Heal"}
	mi := &ir.MethodIR{
		Method: method,
		Params: []ir.ParamInfo{{Name: "amount", Type: &ir.SigType{Kind: ir.ElemI4}}},
		Blocks: []*ir.BasicBlock{
			{Start: 0, Instrs: []*ir.Instruction{
				{Offset: 0, Op: int(il.Ldarg0)},
				{Offset: 1, Op: int(il.Ret)},
			}},
		},
	}

	mod := &ir.Module{Types: []*ir.TypeLayout{layout}, Methods: []*ir.MethodIR{mi}}
	out := Render(mod)

	require.Contains(t, out, `type "Game.Player"`)
	require.Contains(t, out, "field hp : int32 offset=8")
	require.Contains(t, out, "func Game.Player.Heal")
	require.Contains(t, out, "param 0 \"amount\" : int32")
	require.Contains(t, out, "0000: ldarg")
	require.Contains(t, out, "0001: ret")
}

func TestRenderMarksStubAndDeclaredOnlyMethods(t *testing.T) {
	asm := &assembly.Assembly{CanonicalName: "Game"}
	ty := &assembly.Type{Assembly: asm, Row: 2, FullName: "Game.Native", Kind: assembly.KindClass}

	stubbed := &ir.MethodIR{
		Method:     &assembly.Method{DeclaringType: ty, Row: 1, Name: "Broken"},
		StubReason: &ir.StubReason{Kind: "clr-internal-type", Detail: "no managed body"},
	}
	declaredOnly := &ir.MethodIR{
		Method: &assembly.Method{DeclaringType: ty, Row: 2, Name: "Native"},
	}

	mod := &ir.Module{Methods: []*ir.MethodIR{stubbed, declaredOnly}}
	out := Render(mod)

	require.Contains(t, out, "; stub: clr-internal-type (no managed body)")
	require.Contains(t, out, "; declared only")
}
