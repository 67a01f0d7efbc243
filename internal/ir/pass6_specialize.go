package ir

import (
	"github.com/cil2cpp/aotc/internal/assembly"
	"github.com/cil2cpp/aotc/internal/namemap"
)

// pass6Specialize records one Specialization for every distinct generic
// instantiation referenced by a field, parameter, or return type already
// decoded in Pass 1/Pass 2. Each Specialization's Layout is the open
// generic definition's layout, with no type-argument substitution. The
// cache is keyed by NameMapper's mangled instantiation name, so repeated
// instantiations across methods collapse to one record. The walk runs
// once; it is not repeated until no new instantiations appear.
//
// A specialization whose generic type definition cannot itself be
// resolved (no lowerable representation — e.g. it lives entirely inside a
// standard-library internal type this build never opened) is recorded as
// a clr-internal-type stub on every method that referenced it, rather than
// aborting the pass.
func (b *Builder) pass6Specialize() {
	names := namemap.NewMapper()
	b.Mod.Names = names

	seen := map[*SigType]bool{}
	var walk func(mi *MethodIR, t *SigType)
	walk = func(mi *MethodIR, t *SigType) {
		if t == nil || seen[t] {
			return
		}
		seen[t] = true
		switch t.Kind {
		case ElemGenericInst:
			b.specialize(mi, t, names)
			for _, arg := range t.GenericArgs {
				walk(mi, arg)
			}
		case ElemSZArray, ElemArray, ElemPtr, ElemByRef:
			walk(mi, t.Elem)
		}
	}

	for _, mi := range b.orderedMethodIRs() {
		if mi.StubReason != nil {
			continue
		}
		for _, p := range mi.Params {
			walk(mi, p.Type)
		}
		walk(mi, mi.Ret)
	}
	for _, t := range sortedTypes(b.Reach.Types) {
		layout := b.layoutOf(t)
		if layout == nil {
			continue
		}
		for _, f := range layout.Fields {
			// Field-typed instantiations have no owning MethodIR; nil is
			// fine here, specialize only records a type-level stub when
			// something actually fails to resolve.
			walk(nil, f.Type)
		}
	}
}

func (b *Builder) specialize(mi *MethodIR, t *SigType, names *namemap.Mapper) {
	if t.Generic == nil {
		if mi != nil {
			b.stub(mi, "clr-internal-type", "generic instantiation's open definition could not be resolved")
		}
		return
	}

	argIdents := make([]string, len(t.GenericArgs))
	for i, a := range t.GenericArgs {
		argIdents[i] = a.String()
	}
	key, err := names.GenericTypeName(t.Generic.FullName, argIdents)
	if err != nil {
		if mi != nil {
			b.stub(mi, "clr-internal-type", err.Error())
		}
		return
	}
	if _, ok := b.specCache[key]; ok {
		return
	}

	layout, err := b.layoutType(t.Generic, map[*assembly.Type]bool{})
	if err != nil {
		if mi != nil {
			b.stub(mi, "clr-internal-type", err.Error())
		}
		return
	}

	spec := &Specialization{Name: key, GenericType: t.Generic, TypeArgs: t.GenericArgs, Layout: layout}
	b.specCache[key] = spec
	b.Mod.Specializations = append(b.Mod.Specializations, spec)
}
