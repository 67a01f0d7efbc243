package codegen

import (
	"fmt"
	"strings"

	"github.com/cil2cpp/aotc/internal/il"
	"github.com/cil2cpp/aotc/internal/ir"
	"github.com/cil2cpp/aotc/internal/reach"
)

// gateDecision records whether one method's body passed every gate, and
// if not, the classified reason (spec.md §4.6.6/§4.7's taxonomy).
type gateDecision struct {
	render bool
	kind   string
	detail string
}

// knownBrokenPatterns names method-name substrings empirically known to
// defeat straight-line IL-to-C++ lowering; gate 3 rejects any reachable
// method whose name contains one of these. Kept short and explicit —
// spec.md §4.6.6 describes this as a "named pattern" list, not a
// heuristic classifier.
var knownBrokenPatterns = []string{
	"__SIMDIntrinsic",
	"RuntimeHelpers_GetSubArray",
}

// gateAll runs every method through the four ordered gates (spec.md
// §4.6.6): CLR-internal-type, unknown-type, known-broken-pattern,
// undeclared-callee. Gates are order-sensitive — a later gate assumes an
// earlier one passed — and any rejection is total: the method still gets
// exactly one function definition, just a stub one.
func (g *generator) gateAll(methods []*ir.MethodIR) (map[*ir.MethodIR]gateDecision, error) {
	decisions := make(map[*ir.MethodIR]gateDecision, len(methods))
	for _, mi := range methods {
		decisions[mi] = g.gateOne(mi)
	}
	return decisions, nil
}

func (g *generator) gateOne(mi *ir.MethodIR) gateDecision {
	// Gate 1: CLR-internal-type. Earlier passes (Pass 2's signature
	// decode failure, Pass 6's clr-internal-type stub) already recorded
	// this; codegen only needs to honor it.
	if mi.StubReason != nil {
		return gateDecision{render: false, kind: normalizeStubKind(mi.StubReason.Kind), detail: mi.StubReason.Detail}
	}
	if mi.Blocks == nil {
		// Declared-only: abstract, internal-call, or P/Invoke. Not a
		// stub — internal/icall or the P/Invoke trampoline supplies the
		// body, rendered separately from the gate pipeline.
		return gateDecision{render: true}
	}

	// Gate 2: unknown-type. Every param/return/local type used by the
	// method must have a C++ representation.
	if _, err := g.typeName(mi.Ret); err != nil {
		return gateDecision{render: false, kind: "UnknownParameterTypes", detail: err.Error()}
	}
	for _, p := range mi.Params {
		if _, err := g.typeName(p.Type); err != nil {
			return gateDecision{render: false, kind: "UnknownParameterTypes", detail: err.Error()}
		}
	}
	for _, lt := range mi.Locals {
		if _, err := g.typeName(lt); err != nil {
			return gateDecision{render: false, kind: "UnknownParameterTypes", detail: err.Error()}
		}
	}
	for _, blk := range mi.Blocks {
		for _, inst := range blk.Instrs {
			if inst.Result != nil {
				if _, err := g.typeName(inst.Result); err != nil {
					return gateDecision{render: false, kind: "UnknownBodyReferences", detail: err.Error()}
				}
			}
		}
	}

	// Gate 3: known-broken-pattern.
	for _, pat := range knownBrokenPatterns {
		if strings.Contains(mi.Method.Name, pat) {
			return gateDecision{render: false, kind: "KnownBrokenPattern", detail: "matches " + pat}
		}
	}

	// Gate 4: undeclared-callee. Every Call/Callvirt/Newobj/Ldftn target
	// must resolve to a method this build actually emits a definition
	// for (declared here, reached by the internal-call registry, or
	// itself an emitted method — any of those counts as "declared").
	owner := mi.Method.DeclaringType.Assembly
	for _, blk := range mi.Blocks {
		for _, inst := range blk.Instrs {
			if !isCallOpcode(il.Opcode(inst.Op)) {
				continue
			}
			token, ok := inst.Operand.(int64)
			if !ok {
				continue
			}
			targets, err := reach.ResolveCallToken(g.set, owner, uint32(token))
			if err != nil || len(targets) == 0 {
				return gateDecision{render: false, kind: "UndeclaredFunction", detail: fmt.Sprintf("unresolved call token %#x", token)}
			}
			for _, t := range targets {
				if _, declared := g.methodByDecl[t]; declared {
					continue
				}
				if _, ok := g.icalls.Lookup(t.DeclaringType.FullName, t.Name, len(t.Params), ""); ok {
					continue
				}
				return gateDecision{render: false, kind: "UndeclaredFunction", detail: fmt.Sprintf("%s.%s not emitted and not an internal call", t.DeclaringType.FullName, t.Name)}
			}
		}
	}

	return gateDecision{render: true}
}

// normalizeStubKind maps an earlier pass's free-form stub kind string to
// spec.md §4.7's fixed eight-entry root-cause taxonomy, so internal/stubs
// only ever has to group by one vocabulary regardless of which stage
// produced the stub.
func normalizeStubKind(passKind string) string {
	switch passKind {
	case "clr-internal-type":
		return "ClrInternalType"
	case "unresolvable-signature":
		return "UnknownParameterTypes"
	case "unreadable-body", "undecodable-body":
		return "MissingBody"
	case "missing-reference":
		return "UnknownBodyReferences"
	default:
		return "RenderedBodyError"
	}
}

func isCallOpcode(op il.Opcode) bool {
	switch op {
	case il.Call, il.Callvirt, il.Newobj, il.Ldftn, il.Ldvirtftn, il.Calli:
		return true
	default:
		return false
	}
}
