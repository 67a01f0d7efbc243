package ir

import (
	"github.com/cil2cpp/aotc/internal/assembly"
	"github.com/cil2cpp/aotc/internal/reach"
)

// Builder threads the eight passes over one assembly.AssemblySet and its
// reach.Set, accumulating the finished Module as it goes. One Builder is
// used for exactly one Build call; it is not reentrant.
type Builder struct {
	Set   *assembly.AssemblySet
	Reach *reach.Set
	Mod   *Module

	layouts map[*assembly.Type]*TypeLayout
	methods map[*assembly.Method]*MethodIR

	stringPool map[string]*StringLiteral
	blobPool   map[string]*ArrayInitBlob
	specCache  map[string]*Specialization
	vtableCache map[*assembly.Type]*VTable

	// pendingInstantiations is not used by any pass: Pass 6 walks
	// signatures and field types once, with no fixpoint iteration.
	pendingInstantiations []string
}

// Build runs all eight passes in order over set's reachable closure and
// returns the finished IR module. It does not fail on a per-method lowering
// problem — those become stubs (spec.md: "the build still produces a
// complete, compilable artifact") — only on a structural problem with the
// reachable set itself (a type with no layout, an impossible signature)
// that no stub could paper over.
func Build(set *assembly.AssemblySet, rs *reach.Set) (*Module, error) {
	b := &Builder{
		Set:        set,
		Reach:      rs,
		Mod:        &Module{},
		layouts:    map[*assembly.Type]*TypeLayout{},
		methods:    map[*assembly.Method]*MethodIR{},
		stringPool: map[string]*StringLiteral{},
		blobPool:   map[string]*ArrayInitBlob{},
		specCache:  map[string]*Specialization{},
	}

	if err := b.pass1Layout(); err != nil {
		return nil, err
	}
	if err := b.pass2Signatures(); err != nil {
		return nil, err
	}
	b.pass3ControlFlow()
	b.pass4Lowering()
	if err := b.pass5VTables(); err != nil {
		return nil, err
	}
	b.pass6Specialize()
	b.pass7Pool()
	b.pass8Verify()

	for _, t := range sortedTypes(b.Reach.Types) {
		if l := b.layouts[t]; l != nil {
			b.Mod.Types = append(b.Mod.Types, l)
		}
	}
	b.Mod.Methods = append(b.Mod.Methods, b.orderedMethodIRs()...)
	return b.Mod, nil
}

func (b *Builder) stub(mi *MethodIR, kind, detail string) {
	if mi.StubReason != nil {
		return // first reason wins; later passes don't need to pile on
	}
	mi.StubReason = &StubReason{Kind: kind, Method: mi.Method, Detail: detail}
	b.Mod.Stubs = append(b.Mod.Stubs, mi.StubReason)
}

func (b *Builder) layoutOf(t *assembly.Type) *TypeLayout {
	return b.layouts[t]
}

func (b *Builder) methodOf(m *assembly.Method) *MethodIR {
	return b.methods[m]
}
