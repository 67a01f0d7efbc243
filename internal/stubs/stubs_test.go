package stubs

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cil2cpp/aotc/internal/assembly"
	"github.com/cil2cpp/aotc/internal/codegen"
	"github.com/cil2cpp/aotc/internal/ir"
)

func testMethod(row uint32, typeRow uint32, name string) *ir.MethodIR {
	asm := &assembly.Assembly{CanonicalName: "TestAsm"}
	ty := &assembly.Type{Assembly: asm, Row: typeRow, FullName: "Game.T"}
	return &ir.MethodIR{Method: &assembly.Method{DeclaringType: ty, Row: row, Name: name}}
}

func TestGroupByKindSortsByKindThenMethod(t *testing.T) {
	a := testMethod(2, 1, "A")
	b := testMethod(1, 1, "B")
	records := []codegen.StubRecord{
		{Method: a, Kind: "UndeclaredFunction", Detail: "x"},
		{Method: b, Kind: "ClrInternalType", Detail: "y"},
	}
	groups := groupByKind(records)
	require.Len(t, groups, 2)
	require.Equal(t, "ClrInternalType", groups[0].Kind)
	require.Equal(t, "UndeclaredFunction", groups[1].Kind)
}

func TestTraceCascadesMarksTransitiveCaller(t *testing.T) {
	stubMethod := testMethod(1, 1, "Stub")
	directCaller := testMethod(2, 1, "Direct")
	indirectCaller := testMethod(3, 1, "Indirect")
	clean := testMethod(4, 1, "Clean")

	graph := &callGraph{
		callers: map[*ir.MethodIR][]*ir.MethodIR{
			stubMethod:    {directCaller},
			directCaller:  {indirectCaller},
		},
	}
	stubs := map[*ir.MethodIR]codegen.StubRecord{
		stubMethod: {Method: stubMethod, Kind: "UndeclaredFunction"},
	}

	entries := traceCascades(graph, stubs)
	byMethod := map[*ir.MethodIR]*ir.MethodIR{}
	for _, e := range entries {
		byMethod[e.Method] = e.Via
	}
	require.Equal(t, stubMethod, byMethod[directCaller])
	require.Equal(t, stubMethod, byMethod[indirectCaller])
	_, cleanMarked := byMethod[clean]
	require.False(t, cleanMarked)
}

func TestRankUnlocksOrdersByCascadeCountDescending(t *testing.T) {
	bigStub := testMethod(1, 1, "Big")
	smallStub := testMethod(2, 1, "Small")
	caller1 := testMethod(3, 1, "C1")
	caller2 := testMethod(4, 1, "C2")
	caller3 := testMethod(5, 1, "C3")

	stubs := map[*ir.MethodIR]codegen.StubRecord{
		bigStub:   {Method: bigStub, Kind: "UndeclaredFunction"},
		smallStub: {Method: smallStub, Kind: "KnownBrokenPattern"},
	}
	cascades := []CascadeEntry{
		{Method: caller1, Via: bigStub},
		{Method: caller2, Via: bigStub},
		{Method: caller3, Via: smallStub},
	}

	ranking := rankUnlocks(stubs, cascades)
	require.Len(t, ranking, 2)
	require.Equal(t, bigStub, ranking[0].Stub.Method)
	require.Equal(t, 2, ranking[0].Unlocks)
	require.Equal(t, smallStub, ranking[1].Stub.Method)
	require.Equal(t, 1, ranking[1].Unlocks)
}

func TestBudgetSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "budget.json")

	_, ok, err := LoadSnapshot(path)
	require.NoError(t, err)
	require.False(t, ok)

	snap := Snapshot{Total: 3, ByKind: map[string]int{"ClrInternalType": 2, "KnownBrokenPattern": 1}}
	require.NoError(t, SaveSnapshot(path, snap))

	loaded, ok, err := LoadSnapshot(path)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, snap, loaded)
}

func TestCheckRatchetFlagsRegression(t *testing.T) {
	prev := Snapshot{Total: 5, ByKind: map[string]int{"ClrInternalType": 3, "KnownBrokenPattern": 2}}
	cur := Snapshot{Total: 6, ByKind: map[string]int{"ClrInternalType": 3, "KnownBrokenPattern": 3}}

	violations := CheckRatchet(prev, cur)
	require.Len(t, violations, 2)
	require.Equal(t, "__total__", violations[0].Kind)
	require.Equal(t, "KnownBrokenPattern", violations[1].Kind)
}

func TestCheckRatchetAllowsImprovement(t *testing.T) {
	prev := Snapshot{Total: 5, ByKind: map[string]int{"ClrInternalType": 5}}
	cur := Snapshot{Total: 2, ByKind: map[string]int{"ClrInternalType": 2}}
	require.Empty(t, CheckRatchet(prev, cur))
}

func TestCheckRatchetFlagsNewKind(t *testing.T) {
	prev := Snapshot{Total: 1, ByKind: map[string]int{"ClrInternalType": 1}}
	cur := Snapshot{Total: 2, ByKind: map[string]int{"ClrInternalType": 1, "UndeclaredFunction": 1}}
	violations := CheckRatchet(prev, cur)
	require.Len(t, violations, 2)
}
