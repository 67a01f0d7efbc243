package codegen

import (
	"fmt"
	"strings"

	"github.com/cil2cpp/aotc/internal/ir"
)

// instructionCount returns the total number of lowered instructions across
// every block of a method, the unit spec.md §4.6.4 partitions by.
func instructionCount(mi *ir.MethodIR) int {
	n := 0
	for _, blk := range mi.Blocks {
		n += len(blk.Instrs)
	}
	return n
}

// emitMethodPartitions accumulates non-stub methods in deterministic
// emission order until a partition's cumulative instruction count
// reaches opts.PartitionThreshold, then closes it and starts the next
// (spec.md §4.6.4). Partition boundaries only ever depend on this
// running total and the methods' fixed emission order, so they are
// stable given a stable IR input — never on a scheduling accident.
func (g *generator) emitMethodPartitions(decisions map[*ir.MethodIR]gateDecision) ([]Artifact, error) {
	var partitions []Artifact
	var cur strings.Builder
	curCount := 0
	partIndex := 0

	flush := func() {
		if cur.Len() == 0 {
			return
		}
		partitions = append(partitions, Artifact{
			Name:    fmt.Sprintf("%s_part%d.cpp", g.opts.ModuleName, partIndex),
			Content: fmt.Sprintf("#include \"%s.h\"\n\n%s", g.opts.ModuleName, cur.String()),
		})
		partIndex++
		cur.Reset()
		curCount = 0
	}

	for _, mi := range sortedMethodIRs(g.mod.Methods) {
		d := decisions[mi]
		if !d.render || mi.Blocks == nil {
			continue
		}
		body, err := g.emitMethodBody(mi)
		if err != nil {
			return nil, err
		}
		cur.WriteString(body)
		curCount += instructionCount(mi)
		if curCount >= g.opts.PartitionThreshold {
			flush()
		}
	}
	flush()
	if len(partitions) == 0 {
		// Always emit at least one (possibly empty) partition so the
		// build manifest never has to special-case a module with zero
		// lowered bodies.
		partitions = append(partitions, Artifact{
			Name:    fmt.Sprintf("%s_part0.cpp", g.opts.ModuleName),
			Content: fmt.Sprintf("#include \"%s.h\"\n", g.opts.ModuleName),
		})
	}
	return partitions, nil
}
