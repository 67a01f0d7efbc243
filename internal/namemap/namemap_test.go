package namemap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTypeNameIsDeterministic(t *testing.T) {
	m := NewMapper()
	a, err := m.TypeName("System.Collections.Generic.List")
	require.NoError(t, err)
	b, err := m.TypeName("System.Collections.Generic.List")
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestTypeNameEscapesIllegalCharacters(t *testing.T) {
	m := NewMapper()
	ident, err := m.TypeName("Foo+Bar")
	require.NoError(t, err)
	require.NoError(t, CheckAlphabet(ident))
}

func TestGenericTypeNameDistinguishesInstantiations(t *testing.T) {
	m := NewMapper()
	listInt, err := m.GenericTypeName("System.Collections.Generic.List", []string{"T_System_Int32"})
	require.NoError(t, err)
	listStr, err := m.GenericTypeName("System.Collections.Generic.List", []string{"T_System_String"})
	require.NoError(t, err)
	require.NotEqual(t, listInt, listStr)
}

func TestMethodNameDisambiguatesOverloads(t *testing.T) {
	m := NewMapper()
	a, err := m.MethodName("T_Foo", "Write", []string{"T_System_Int32"})
	require.NoError(t, err)
	b, err := m.MethodName("T_Foo", "Write", []string{"T_System_String"})
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestInternDetectsCollision(t *testing.T) {
	m := NewMapper()
	m.seen["dup"] = "keyA"
	_, err := m.intern("keyB", "dup")
	require.Error(t, err)
}

func TestCheckAlphabetRejectsIllegalCharacter(t *testing.T) {
	require.Error(t, CheckAlphabet("has a space"))
	require.Error(t, CheckAlphabet(""))
	require.NoError(t, CheckAlphabet("T_Valid_123"))
}

func TestArrayAndPointerNamesAreDistinct(t *testing.T) {
	m := NewMapper()
	arr, err := m.ArrayTypeName("T_System_Int32", 1, false)
	require.NoError(t, err)
	ptr, err := m.PointerTypeName("T_System_Int32", 1)
	require.NoError(t, err)
	require.NotEqual(t, arr, ptr)
}
