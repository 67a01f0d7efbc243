package ir

import (
	"sort"

	"github.com/cil2cpp/aotc/internal/assembly"
)

// pass2Signatures translates every reachable method's signature into its IR
// parameter-list form (spec.md Pass 2). P/Invoke and internal-call methods
// get a MethodIR with no Blocks — Pass 3/4 skip them, and the code
// generator renders them as a declaration bound to their runtime or native
// entry point instead of a lowered body.
func (b *Builder) pass2Signatures() error {
	methods := sortedMethods(b.Reach.Methods)
	for _, m := range methods {
		mi := &MethodIR{Method: m, VTableSlot: -1}
		b.methods[m] = mi

		blob, err := m.DeclaringType.Assembly.Root().BlobAt(m.SignatureBlob)
		if err != nil {
			b.stub(mi, "unresolvable-signature", err.Error())
			continue
		}
		sig, err := DecodeMethodSignature(b.Set, m.DeclaringType.Assembly, blob)
		if err != nil {
			b.stub(mi, "unresolvable-signature", err.Error())
			continue
		}

		mi.HasThis = sig.HasThis
		mi.IsStatic = !sig.HasThis
		mi.Ret = sig.Ret
		mi.RetByRef = sig.RetByRef

		for i, pt := range sig.Params {
			name := ""
			if i < len(m.Params) {
				name = m.Params[i].Name
			}
			byRef := false
			if i < len(sig.ByRefParam) {
				byRef = sig.ByRefParam[i]
			}
			mi.Params = append(mi.Params, ParamInfo{Name: name, Type: pt, ByRef: byRef})
		}

		if m.HasBody() {
			localsBlob, err := m.DeclaringType.Assembly.MethodLocalsSignature(m)
			if err != nil {
				b.stub(mi, "unresolvable-signature", err.Error())
				continue
			}
			if localsBlob != nil {
				locals, err := DecodeLocalVarSig(b.Set, m.DeclaringType.Assembly, localsBlob)
				if err != nil {
					b.stub(mi, "unresolvable-signature", err.Error())
					continue
				}
				mi.Locals = locals
			}
		}
	}
	return nil
}

func sortedMethods(set map[*assembly.Method]bool) []*assembly.Method {
	out := make([]*assembly.Method, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		a, c := out[i], out[j]
		if a.DeclaringType.Assembly != c.DeclaringType.Assembly {
			return a.DeclaringType.Assembly.CanonicalName < c.DeclaringType.Assembly.CanonicalName
		}
		if a.DeclaringType.Row != c.DeclaringType.Row {
			return a.DeclaringType.Row < c.DeclaringType.Row
		}
		return a.Row < c.Row
	})
	return out
}
