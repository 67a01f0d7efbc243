package ir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cil2cpp/aotc/internal/assembly"
)

func TestSortedMethodsOrdersByAssemblyTypeThenRow(t *testing.T) {
	asmA := &assembly.Assembly{CanonicalName: "A"}
	asmB := &assembly.Assembly{CanonicalName: "B"}
	tyA1 := &assembly.Type{Assembly: asmA, Row: 1}
	tyA2 := &assembly.Type{Assembly: asmA, Row: 2}
	tyB1 := &assembly.Type{Assembly: asmB, Row: 1}

	m1 := &assembly.Method{DeclaringType: tyB1, Row: 1}
	m2 := &assembly.Method{DeclaringType: tyA2, Row: 3}
	m3 := &assembly.Method{DeclaringType: tyA1, Row: 9}
	m4 := &assembly.Method{DeclaringType: tyA1, Row: 1}

	out := sortedMethods(map[*assembly.Method]bool{m1: true, m2: true, m3: true, m4: true})
	require.Equal(t, []*assembly.Method{m4, m3, m2, m1}, out)
}
