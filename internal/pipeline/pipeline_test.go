package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cil2cpp/aotc/internal/assembly"
	"github.com/cil2cpp/aotc/internal/ir"
	"github.com/cil2cpp/aotc/internal/namemap"
	"github.com/cil2cpp/aotc/internal/reach"
)

func TestModeName(t *testing.T) {
	require.Equal(t, "executable", modeName(reach.ModeExecutable))
	require.Equal(t, "library", modeName(reach.ModeLibrary))
}

func TestFindMethodIR(t *testing.T) {
	asm := &assembly.Assembly{CanonicalName: "Game"}
	ty := &assembly.Type{Assembly: asm, Row: 1, FullName: "Game.Program"}
	entry := &assembly.Method{DeclaringType: ty, Row: 1, Name: "Main"}
	other := &assembly.Method{DeclaringType: ty, Row: 2, Name: "Helper"}

	entryIR := &ir.MethodIR{Method: entry}
	otherIR := &ir.MethodIR{Method: other}
	mod := &ir.Module{Methods: []*ir.MethodIR{otherIR, entryIR}}

	require.Equal(t, entryIR, findMethodIR(mod, entry))
	require.Nil(t, findMethodIR(mod, &assembly.Method{DeclaringType: ty, Row: 3, Name: "Missing"}))
}

func TestMustTypeNameFallsBackToFullNameOnError(t *testing.T) {
	asm := &assembly.Assembly{CanonicalName: "Game"}
	ty := &assembly.Type{Assembly: asm, Row: 1, FullName: "Game.Program"}

	mapper := namemap.NewMapper()
	// Pre-claim the identifier "Game.Program" would escape to under a
	// different canonical name, forcing Mapper.TypeName to reject it.
	_, err := mapper.TypeName("Game_Program")
	require.NoError(t, err)

	mod := &ir.Module{Names: mapper}
	name := mustTypeName(mod, ty)
	require.Equal(t, "Game.Program", name)
}

func TestMustTypeNameUsesInternedIdent(t *testing.T) {
	asm := &assembly.Assembly{CanonicalName: "Game"}
	ty := &assembly.Type{Assembly: asm, Row: 1, FullName: "Game.Program"}
	mapper := namemap.NewMapper()
	ident, err := mapper.TypeName(ty.FullName)
	require.NoError(t, err)

	mod := &ir.Module{Names: mapper}
	require.Equal(t, ident, mustTypeName(mod, ty))
}
