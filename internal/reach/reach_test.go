package reach

import (
	"testing"

	"github.com/cil2cpp/aotc/internal/assembly"
	"github.com/cil2cpp/aotc/internal/il"
	"github.com/stretchr/testify/require"
)

func TestIsPublicMethodOrdinary(t *testing.T) {
	m := &assembly.Method{Name: "DoWork"}
	require.True(t, isPublicMethod(m))
}

func TestIsPublicMethodSpecialNameCtorStillPublic(t *testing.T) {
	m := &assembly.Method{Name: ".ctor", IsSpecialName: true}
	require.True(t, isPublicMethod(m))
}

func TestIsPublicMethodSpecialNameOperatorIsExcluded(t *testing.T) {
	m := &assembly.Method{Name: "op_Addition", IsSpecialName: true}
	require.False(t, isPublicMethod(m))
}

func TestAddStaticConstructorFindsCctor(t *testing.T) {
	cctor := &assembly.Method{Name: ".cctor"}
	ty := &assembly.Type{Methods: []*assembly.Method{
		{Name: ".ctor"},
		cctor,
	}}

	var enqueued []*assembly.Method
	addStaticConstructor(newSet(), ty, func(m *assembly.Method) {
		enqueued = append(enqueued, m)
	})

	require.Equal(t, []*assembly.Method{cctor}, enqueued)
}

func TestAddStaticConstructorNoneFound(t *testing.T) {
	ty := &assembly.Type{Methods: []*assembly.Method{{Name: ".ctor"}}}

	var enqueued []*assembly.Method
	addStaticConstructor(newSet(), ty, func(m *assembly.Method) {
		enqueued = append(enqueued, m)
	})

	require.Empty(t, enqueued)
}

func TestAddStaticConstructorOfTypeSkipsAlreadyReachable(t *testing.T) {
	cctor := &assembly.Method{Name: ".cctor"}
	ty := &assembly.Type{Methods: []*assembly.Method{cctor}}
	s := newSet()
	s.Methods[cctor] = true

	var newWork []*assembly.Method
	addStaticConstructorOfType(s, ty, &newWork)

	require.Empty(t, newWork)
}

func TestUsesTokenCallAndFieldOpcodes(t *testing.T) {
	require.True(t, usesToken(il.Call))
	require.True(t, usesToken(il.Newobj))
	require.True(t, usesToken(il.Ldfld))
	require.True(t, usesToken(il.Ldtoken))
}

func TestUsesTokenArithmeticOpcodesAreFalse(t *testing.T) {
	require.False(t, usesToken(il.Add))
	require.False(t, usesToken(il.Ldloc0))
	require.False(t, usesToken(il.Br))
}

func TestAddTypeNilIsNoop(t *testing.T) {
	s := newSet()
	addType(s, nil)
	require.Empty(t, s.Types)
}

func TestAnalyzeExecutableModeRequiresEntry(t *testing.T) {
	_, err := Analyze(&assembly.AssemblySet{}, ModeExecutable, nil, AlwaysKeep{})
	require.Error(t, err)
}
