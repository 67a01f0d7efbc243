package ir

// pass8Verify checks that every operand any IR instruction references
// ultimately resolved to something Pass 1/2 built a layout or signature
// for (spec.md Pass 8). Earlier passes already attach a stub reason the
// moment they themselves fail to resolve something; this pass's job is
// narrower — it catches the one case earlier passes cannot: an
// instruction whose resolved type or method exists, but was never placed
// in the reachable set at all (a reference ReachabilityAnalyzer itself
// missed). Finding one here is a bug in an earlier stage, not a normal
// build outcome, so it is reported the same way: a stub on the referring
// method, never a build abort.
func (b *Builder) pass8Verify() {
	for _, mi := range b.orderedMethodIRs() {
		if mi.StubReason != nil {
			continue
		}
		if mi.Ret != nil && !b.typeResolvable(mi.Ret) {
			b.stub(mi, "missing-reference", "return type not in reachable set")
			continue
		}
		for _, p := range mi.Params {
			if !b.typeResolvable(p.Type) {
				b.stub(mi, "missing-reference", "parameter type not in reachable set")
				break
			}
		}
	}
}

// typeResolvable reports whether t's nominal type (if it has one) has a
// layout — i.e. was actually processed by Pass 1, not just decoded by the
// signature reader. Primitives, generic parameters, and constructed
// generics (resolved separately via Pass 6's specialization cache) always
// pass.
func (b *Builder) typeResolvable(t *SigType) bool {
	if t == nil {
		return true
	}
	switch t.Kind {
	case ElemClass, ElemValueType:
		if t.Class == nil {
			return false
		}
		return b.layoutOf(t.Class) != nil
	case ElemSZArray, ElemArray, ElemPtr, ElemByRef:
		return b.typeResolvable(t.Elem)
	default:
		return true
	}
}
