package ir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cil2cpp/aotc/internal/assembly"
	"github.com/cil2cpp/aotc/internal/il"
)

func TestPass4LoweringAnnotatesInstructionResult(t *testing.T) {
	asm := &assembly.Assembly{CanonicalName: "Game"}
	ty := &assembly.Type{Assembly: asm, Row: 1}
	m := &assembly.Method{DeclaringType: ty, Row: 1}

	addInst := &Instruction{Op: int(il.Add)}
	popInst := &Instruction{Op: int(il.Pop)}
	unknownInst := &Instruction{Op: -1}
	mi := &MethodIR{Method: m, Blocks: []*BasicBlock{{Instrs: []*Instruction{addInst, popInst, unknownInst}}}}

	b := &Builder{methods: map[*assembly.Method]*MethodIR{m: mi}}
	b.pass4Lowering()

	require.NotNil(t, addInst.Result)
	require.Equal(t, ElemI4, addInst.Result.Kind)
	require.Nil(t, popInst.Result)
	require.Nil(t, unknownInst.Result)
}

func TestPass4LoweringSkipsAlreadyStubbedMethods(t *testing.T) {
	asm := &assembly.Assembly{CanonicalName: "Game"}
	ty := &assembly.Type{Assembly: asm, Row: 1}
	m := &assembly.Method{DeclaringType: ty, Row: 1}

	addInst := &Instruction{Op: int(il.Add)}
	mi := &MethodIR{
		Method:     m,
		StubReason: &StubReason{Kind: "unresolvable-signature"},
		Blocks:     []*BasicBlock{{Instrs: []*Instruction{addInst}}},
	}

	b := &Builder{methods: map[*assembly.Method]*MethodIR{m: mi}}
	b.pass4Lowering()

	require.Nil(t, addInst.Result)
}
