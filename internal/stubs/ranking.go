package stubs

import (
	"sort"

	"github.com/cil2cpp/aotc/internal/codegen"
	"github.com/cil2cpp/aotc/internal/ir"
)

// UnlockEntry ranks one stub by how many otherwise-passing methods are
// cascade-affected through it — the "fix this one next" signal spec.md
// §4.7 calls unlock ranking.
type UnlockEntry struct {
	Stub    codegen.StubRecord
	Unlocks int
}

// rankUnlocks counts, for each stub, how many cascade entries name it as
// their nearest stub, then sorts descending by that count (ties broken by
// method order, so equally-ranked stubs still come out in a fixed order).
func rankUnlocks(stubs map[*ir.MethodIR]codegen.StubRecord, cascades []CascadeEntry) []UnlockEntry {
	counts := make(map[*ir.MethodIR]int, len(stubs))
	for mi := range stubs {
		counts[mi] = 0
	}
	for _, c := range cascades {
		counts[c.Via]++
	}

	ranking := make([]UnlockEntry, 0, len(stubs))
	for mi, n := range counts {
		ranking = append(ranking, UnlockEntry{Stub: stubs[mi], Unlocks: n})
	}
	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].Unlocks != ranking[j].Unlocks {
			return ranking[i].Unlocks > ranking[j].Unlocks
		}
		return methodOrderKey(ranking[i].Stub.Method) < methodOrderKey(ranking[j].Stub.Method)
	})
	return ranking
}
