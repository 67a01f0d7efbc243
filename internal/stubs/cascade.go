package stubs

import (
	"sort"

	"github.com/cil2cpp/aotc/internal/assembly"
	"github.com/cil2cpp/aotc/internal/codegen"
	"github.com/cil2cpp/aotc/internal/il"
	"github.com/cil2cpp/aotc/internal/ir"
	"github.com/cil2cpp/aotc/internal/reach"
)

// callGraph is the direct-call edge set over every reachable method with a
// lowered body: caller -> its direct callees, restricted to callees this
// build also emits a MethodIR for (an ICall-backed or external callee
// carries no cascade risk of its own, since internal/codegen already
// resolves those through a real runtime function rather than a stub).
type callGraph struct {
	methodByDecl map[*assembly.Method]*ir.MethodIR
	callees      map[*ir.MethodIR][]*ir.MethodIR
	callers      map[*ir.MethodIR][]*ir.MethodIR
}

func buildCallGraph(set *assembly.AssemblySet, mod *ir.Module) (*callGraph, error) {
	g := &callGraph{
		methodByDecl: make(map[*assembly.Method]*ir.MethodIR, len(mod.Methods)),
		callees:      make(map[*ir.MethodIR][]*ir.MethodIR, len(mod.Methods)),
		callers:      make(map[*ir.MethodIR][]*ir.MethodIR, len(mod.Methods)),
	}
	for _, mi := range mod.Methods {
		g.methodByDecl[mi.Method] = mi
	}
	for _, mi := range mod.Methods {
		if mi.Blocks == nil {
			continue
		}
		owner := mi.Method.DeclaringType.Assembly
		seen := map[*ir.MethodIR]bool{}
		for _, blk := range mi.Blocks {
			for _, inst := range blk.Instrs {
				if !isCallOpcode(il.Opcode(inst.Op)) {
					continue
				}
				token, ok := inst.Operand.(int64)
				if !ok {
					continue
				}
				targets, err := reach.ResolveCallToken(set, owner, uint32(token))
				if err != nil {
					continue
				}
				for _, t := range targets {
					callee, ok := g.methodByDecl[t]
					if !ok || callee == mi || seen[callee] {
						continue
					}
					seen[callee] = true
					g.callees[mi] = append(g.callees[mi], callee)
					g.callers[callee] = append(g.callers[callee], mi)
				}
			}
		}
	}
	return g, nil
}

func isCallOpcode(op il.Opcode) bool {
	switch op {
	case il.Call, il.Callvirt, il.Newobj, il.Ldftn, il.Ldvirtftn, il.Calli:
		return true
	default:
		return false
	}
}

// CascadeEntry records that a method passed every stub gate on its own
// merits but transitively calls into at least one stub, so its generated
// body still traps along some runtime path.
type CascadeEntry struct {
	Method *ir.MethodIR
	Via    *ir.MethodIR // the stub nearest this method's own call graph
}

// traceCascades walks the call graph backward from every stub in fixed
// method order, breadth-first, marking each unmarked ancestor with the
// stub whose traversal reached it. Processing stubs in a stable order (and
// a stable BFS frontier within each) makes Via deterministic even though
// more than one stub may be reachable from the same method.
func traceCascades(graph *callGraph, stubs map[*ir.MethodIR]codegen.StubRecord) []CascadeEntry {
	var stubList []*ir.MethodIR
	for mi := range stubs {
		stubList = append(stubList, mi)
	}
	sort.Slice(stubList, func(i, j int) bool { return methodOrderKey(stubList[i]) < methodOrderKey(stubList[j]) })

	via := map[*ir.MethodIR]*ir.MethodIR{}
	for _, s := range stubList {
		frontier := append([]*ir.MethodIR(nil), graph.callers[s]...)
		sort.Slice(frontier, func(i, j int) bool { return methodOrderKey(frontier[i]) < methodOrderKey(frontier[j]) })
		visited := map[*ir.MethodIR]bool{}
		for len(frontier) > 0 {
			var next []*ir.MethodIR
			for _, caller := range frontier {
				if visited[caller] {
					continue
				}
				visited[caller] = true
				if _, isStub := stubs[caller]; isStub {
					continue // a stub's own callers are traced from that stub directly
				}
				if _, already := via[caller]; !already {
					via[caller] = s
				}
				next = append(next, graph.callers[caller]...)
			}
			sort.Slice(next, func(i, j int) bool { return methodOrderKey(next[i]) < methodOrderKey(next[j]) })
			frontier = next
		}
	}

	var entries []CascadeEntry
	for mi, s := range via {
		entries = append(entries, CascadeEntry{Method: mi, Via: s})
	}
	sort.Slice(entries, func(i, j int) bool { return methodOrderKey(entries[i].Method) < methodOrderKey(entries[j].Method) })
	return entries
}
