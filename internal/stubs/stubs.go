// Package stubs implements the StubAnalyzer (spec.md §4.7): grouping a
// finished build's stub records by root cause, tracing which otherwise-
// clean methods are downstream of a stub call at runtime, ranking stubs by
// how much of that downstream impact fixing each one would remove, and
// persisting a budget ratchet across builds so the reachable stub count
// only ever holds steady or shrinks (spec.md §4.8). Grounded on
// tinyrange-rtg/std/compiler/size_analysis.go's measure-persist-compare
// shape, generalized from a single function-size total to a classified,
// cascade-aware stub report.
package stubs

import (
	"fmt"
	"sort"

	"github.com/cil2cpp/aotc/internal/assembly"
	"github.com/cil2cpp/aotc/internal/codegen"
	"github.com/cil2cpp/aotc/internal/ir"
)

// Report is the full StubAnalyzer output for one build.
type Report struct {
	Total    int
	Groups   []Group
	Cascades []CascadeEntry
	Ranking  []UnlockEntry
}

// Group is every stub record sharing one root-cause kind, spec.md §4.7's
// fixed eight-entry taxonomy.
type Group struct {
	Kind    string
	Records []codegen.StubRecord
}

// Analyze classifies result's stubs and traces their call-graph impact
// over every method set reached (mod.Methods). set resolves call
// instructions' tokens the same way internal/codegen's undeclared-callee
// gate does.
func Analyze(set *assembly.AssemblySet, mod *ir.Module, result *codegen.Result) (*Report, error) {
	groups := groupByKind(result.Stubs)

	graph, err := buildCallGraph(set, mod)
	if err != nil {
		return nil, fmt.Errorf("stubs: building call graph: %w", err)
	}
	stubSet := make(map[*ir.MethodIR]codegen.StubRecord, len(result.Stubs))
	for _, s := range result.Stubs {
		stubSet[s.Method] = s
	}

	cascades := traceCascades(graph, stubSet)
	ranking := rankUnlocks(stubSet, cascades)

	return &Report{
		Total:    len(result.Stubs),
		Groups:   groups,
		Cascades: cascades,
		Ranking:  ranking,
	}, nil
}

func groupByKind(records []codegen.StubRecord) []Group {
	byKind := map[string][]codegen.StubRecord{}
	for _, r := range records {
		byKind[r.Kind] = append(byKind[r.Kind], r)
	}
	var kinds []string
	for k := range byKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	groups := make([]Group, 0, len(kinds))
	for _, k := range kinds {
		recs := append([]codegen.StubRecord(nil), byKind[k]...)
		sort.Slice(recs, func(i, j int) bool { return methodOrderKey(recs[i].Method) < methodOrderKey(recs[j].Method) })
		groups = append(groups, Group{Kind: k, Records: recs})
	}
	return groups
}

func methodOrderKey(mi *ir.MethodIR) string {
	m := mi.Method
	return fmt.Sprintf("%s\x00%08d\x00%08d", m.DeclaringType.Assembly.CanonicalName, m.DeclaringType.Row, m.Row)
}
