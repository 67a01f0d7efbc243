package ir

import (
	"sort"

	"github.com/cil2cpp/aotc/internal/assembly"
	"github.com/cil2cpp/aotc/internal/il"
)

// orderedMethodIRs returns every MethodIR built so far in the same
// deterministic order pass2Signatures used to build them.
func (b *Builder) orderedMethodIRs() []*MethodIR {
	ms := make([]*assembly.Method, 0, len(b.methods))
	for m := range b.methods {
		ms = append(ms, m)
	}
	sort.Slice(ms, func(i, j int) bool {
		a, c := ms[i], ms[j]
		if a.DeclaringType.Assembly != c.DeclaringType.Assembly {
			return a.DeclaringType.Assembly.CanonicalName < c.DeclaringType.Assembly.CanonicalName
		}
		if a.DeclaringType.Row != c.DeclaringType.Row {
			return a.DeclaringType.Row < c.DeclaringType.Row
		}
		return a.Row < c.Row
	})
	out := make([]*MethodIR, len(ms))
	for i, m := range ms {
		out[i] = b.methods[m]
	}
	return out
}

// pass3ControlFlow decodes each non-abstract, non-internal-call method's
// bytecode into basic blocks (spec.md Pass 3): every branch target and
// every instruction following a branch or return starts a new block, so
// each block ends in exactly one terminator and the entry block — offset
// 0 — dominates every other block by construction (no edge ever points
// above it without first passing through it).
func (b *Builder) pass3ControlFlow() {
	for _, mi := range b.orderedMethodIRs() {
		if mi.StubReason != nil || !mi.Method.HasBody() {
			continue
		}
		owner := mi.Method.DeclaringType.Assembly
		body, err := owner.MethodBody(mi.Method)
		if err != nil {
			b.stub(mi, "unreadable-body", err.Error())
			continue
		}
		insts, err := il.Decode(body)
		if err != nil {
			b.stub(mi, "undecodable-body", err.Error())
			continue
		}
		if len(insts) == 0 {
			continue
		}
		mi.Blocks = buildBlocks(insts)
	}
}

func buildBlocks(insts []il.Instruction) []*BasicBlock {
	leaders := map[int]bool{insts[0].Offset: true}
	for i, inst := range insts {
		for _, t := range inst.Targets {
			leaders[t] = true
		}
		if (il.IsTerminator(inst.Op) || il.IsConditionalBranch(inst.Op)) && i+1 < len(insts) {
			leaders[insts[i+1].Offset] = true
		}
	}

	var blocks []*BasicBlock
	byStart := map[int]*BasicBlock{}
	var cur *BasicBlock
	for i, inst := range insts {
		if leaders[inst.Offset] {
			if cur != nil {
				cur.End = inst.Offset
			}
			cur = &BasicBlock{Start: inst.Offset}
			blocks = append(blocks, cur)
			byStart[inst.Offset] = cur
		}
		cur.Instrs = append(cur.Instrs, &Instruction{
			Offset:   inst.Offset,
			Op:       int(inst.Op),
			Operand:  instOperand(inst),
			Branches: inst.Targets,
		})
		if i == len(insts)-1 {
			cur.End = inst.Offset + 1
		}
	}

	for bi, blk := range blocks {
		last := blk.Instrs[len(blk.Instrs)-1]
		op := il.Opcode(last.Op)
		if il.IsConditionalBranch(op) {
			for _, t := range last.Branches {
				if succ, ok := byStart[t]; ok {
					blk.Succs = append(blk.Succs, succ)
				}
			}
			if bi+1 < len(blocks) {
				blk.Succs = append(blk.Succs, blocks[bi+1])
			}
		} else if !il.IsTerminator(op) {
			if bi+1 < len(blocks) {
				blk.Succs = append(blk.Succs, blocks[bi+1])
			}
		} else {
			for _, t := range last.Branches {
				if succ, ok := byStart[t]; ok {
					blk.Succs = append(blk.Succs, succ)
				}
			}
		}
	}
	return blocks
}

// instOperand carries whichever operand field a decoded instruction
// populated through to the IR instruction, without Pass 4's type
// resolution applied yet.
func instOperand(inst il.Instruction) interface{} {
	switch {
	case inst.Op == il.Switch:
		return inst.Targets
	default:
		return inst.I64
	}
}
