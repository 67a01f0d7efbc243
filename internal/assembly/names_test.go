package assembly

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestAssembly(types []*Type, enclosing map[uint32]uint32) *Assembly {
	a := &Assembly{
		CanonicalName: "Test",
		qualNames:     make(map[uint32]string),
		enclosingRow:  enclosing,
	}
	for i, ty := range types {
		ty.Assembly = a
		ty.Row = uint32(i)
	}
	a.Types = types
	return a
}

func TestFullNameTopLevel(t *testing.T) {
	a := newTestAssembly([]*Type{
		{Name: "List", Namespace: "System.Collections"},
	}, map[uint32]uint32{})

	require.Equal(t, "System.Collections.List", a.FullName(0))
}

func TestFullNameGlobalNamespace(t *testing.T) {
	a := newTestAssembly([]*Type{
		{Name: "Program", Namespace: ""},
	}, map[uint32]uint32{})

	require.Equal(t, "Program", a.FullName(0))
}

func TestFullNameNested(t *testing.T) {
	a := newTestAssembly([]*Type{
		{Name: "Dictionary", Namespace: "System.Collections.Generic"},
		{Name: "Entry", Namespace: ""},
	}, map[uint32]uint32{1: 0})

	require.Equal(t, "System.Collections.Generic.Dictionary", a.FullName(0))
	require.Equal(t, "System.Collections.Generic.Dictionary+Entry", a.FullName(1))
}

func TestFullNameDoublyNestedIsMemoized(t *testing.T) {
	a := newTestAssembly([]*Type{
		{Name: "Outer", Namespace: "N"},
		{Name: "Middle", Namespace: ""},
		{Name: "Inner", Namespace: ""},
	}, map[uint32]uint32{1: 0, 2: 1})

	require.Equal(t, "N.Outer+Middle+Inner", a.FullName(2))
	// second call must hit the memo, not recompute
	require.Equal(t, "N.Outer+Middle+Inner", a.FullName(2))
}
