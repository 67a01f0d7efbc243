package codegen

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"

	"github.com/cil2cpp/aotc/internal/assembly"
	"github.com/cil2cpp/aotc/internal/icall"
	"github.com/cil2cpp/aotc/internal/il"
	"github.com/cil2cpp/aotc/internal/ir"
	"github.com/cil2cpp/aotc/internal/irtext"
	"github.com/cil2cpp/aotc/internal/namemap"
	"github.com/cil2cpp/aotc/internal/runtimetypes"
)

// txtarFile looks up one named section of an archive, failing the test if
// it is absent — every golden fixture is expected to declare every section
// this test compares against.
func txtarFile(t *testing.T, a *txtar.Archive, name string) string {
	t.Helper()
	for _, f := range a.Files {
		if f.Name == name {
			return string(f.Data)
		}
	}
	t.Fatalf("golden fixture missing %q section", name)
	return ""
}

// TestGoldenCalculatorAdd lowers a single reachable static method through
// the full gate pipeline, the C++ code generator, and the IR text dumper,
// and diffs the result against testdata/golden/calculator_add.txtar.
// Module.h carries a fixed, module-content-independent block (one alias
// per runtimetypes.Load() entry) that would make a byte-exact header diff
// brittle without changing anything this fixture actually exercises, so
// Module.h is checked by substring instead of byte-for-byte.
func TestGoldenCalculatorAdd(t *testing.T) {
	archive, err := txtar.ParseFile("../../testdata/golden/calculator_add.txtar")
	require.NoError(t, err)

	asm := testAssembly()
	calc := testType(asm, 1, "Game.Calculator", assembly.KindClass)
	layout := &ir.TypeLayout{Type: calc, Size: 0, Align: 0}

	add := &assembly.Method{DeclaringType: calc, Row: 1, Name: "Add", IsStatic: true}
	mi := &ir.MethodIR{
		Method:     add,
		Params:     []ir.ParamInfo{{Name: "a", Type: &ir.SigType{Kind: ir.ElemI4}}, {Name: "b", Type: &ir.SigType{Kind: ir.ElemI4}}},
		Ret:        &ir.SigType{Kind: ir.ElemI4},
		IsStatic:   true,
		VTableSlot: -1,
		Blocks: []*ir.BasicBlock{{
			Start: 0,
			Instrs: []*ir.Instruction{
				{Offset: 0, Op: int(il.Ldarg0)},
				{Offset: 1, Op: int(il.Ldarg1)},
				{Offset: 2, Op: int(il.Add)},
				{Offset: 3, Op: int(il.Ret)},
			},
		}},
	}

	mod := &ir.Module{
		Names:   namemap.NewMapper(),
		Types:   []*ir.TypeLayout{layout},
		Methods: []*ir.MethodIR{mi},
	}

	require.Equal(t, txtarFile(t, archive, "ir.txt"), irtext.Render(mod))

	icalls, err := icall.Load()
	require.NoError(t, err)
	runtime, err := runtimetypes.Load()
	require.NoError(t, err)

	result, err := Generate(nil, mod, icalls, runtime, Options{ModuleName: "Module", PartitionThreshold: DefaultPartitionThreshold})
	require.NoError(t, err)

	require.Empty(t, result.Stubs, "fixture method must clear every gate, not fall back to a stub")
	require.Equal(t, txtarFile(t, archive, "data.cpp"), result.Data.Content)
	require.Len(t, result.MethodPartitions, 1)
	require.Equal(t, txtarFile(t, archive, "part0.cpp"), result.MethodPartitions[0].Content)

	for _, line := range splitNonEmptyLines(txtarFile(t, archive, "header_contains.txt")) {
		require.Contains(t, result.Header.Content, line)
	}
}

func splitNonEmptyLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '\n' {
			if i > start {
				lines = append(lines, s[start:i])
			}
			start = i + 1
		}
	}
	return lines
}
