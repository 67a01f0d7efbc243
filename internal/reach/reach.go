// Package reach computes the transitive closure of reachable types,
// methods, fields and generic instantiations from a set of roots
// (SPEC_FULL.md §4.2, ReachabilityAnalyzer). It decodes method
// bodies with internal/il: a worklist of methods is scanned
// instruction by instruction, and every token operand pulls in whatever it
// names.
//
// The worklist/mark-sweep shape is grounded directly on
// tinyrange-rtg/std/compiler/dce.go's eliminateDeadFunctions: a
// name-indexed reachable set, a LIFO worklist seeded from root functions,
// and a scan of each popped function's call instructions that adds newly
// discovered callees. Generalized here from "functions that call
// functions" to "methods that reference types, methods, fields and
// constructed generics."
package reach

import (
	"encoding/hex"
	"fmt"

	"github.com/cil2cpp/aotc/internal/assembly"
	"github.com/cil2cpp/aotc/internal/il"
	"github.com/cil2cpp/aotc/internal/metadata"
)

// Mode selects the root set (spec.md §4.2).
type Mode int

const (
	// ModeExecutable roots the closure at a single entry-point method.
	ModeExecutable Mode = iota
	// ModeLibrary roots the closure at every public type declaring at
	// least one public method.
	ModeLibrary
)

// Set is the closed, reference-closed reachable universe. Membership is
// tracked by pointer identity: every *assembly.Type/*Method/*Field the
// AssemblySet ever produces for a given canonical name is the same Go
// pointer, so pointer-keyed maps already satisfy spec.md §4.2's "every
// entry in the set is uniquely identified by its canonical name"
// invariant without a separate string-keyed index.
type Set struct {
	Types   map[*assembly.Type]bool
	Methods map[*assembly.Method]bool
	Fields  map[*assembly.Field]bool

	// Instantiations records every distinct TypeSpec/MethodSpec
	// instantiation blob reached, keyed by the hex-encoded blob bytes
	// (a stable, content-addressed key since identical instantiation
	// signatures are byte-identical). internal/ir Pass 6 does the actual
	// type-argument substitution; this package only records that the
	// construction was referenced at all.
	Instantiations map[string]bool

	// Diagnostics holds one entry per unresolved reference encountered
	// while scanning a method body (spec.md §4.2: "Failures: none —
	// analysis is total; unresolvable references are recorded as
	// diagnostics on the referring method"). StubCandidates mirrors the
	// methods that produced at least one diagnostic.
	Diagnostics    []Diagnostic
	StubCandidates map[*assembly.Method]bool
}

// Diagnostic records one reference ReachabilityAnalyzer could not resolve.
type Diagnostic struct {
	Method *assembly.Method
	Detail string
}

func newSet() *Set {
	return &Set{
		Types:          map[*assembly.Type]bool{},
		Methods:        map[*assembly.Method]bool{},
		Fields:         map[*assembly.Field]bool{},
		Instantiations: map[string]bool{},
		StubCandidates: map[*assembly.Method]bool{},
	}
}

// AlwaysKeep is the small explicit always-keep root list spec.md §4.2
// names: the primitive numeric types, the core exception types, and the
// delegate base. Callers (internal/pipeline) pass the canonical names
// this particular build's standard library actually uses.
type AlwaysKeep struct {
	// TypeFullNames are resolved via AssemblySet.LookupType.
	TypeFullNames []string
	// RuntimeProvidedTypes is the runtime-provided-types allowlist
	// (internal/runtimetypes), also rooted directly.
	RuntimeProvidedTypes []string
}

// Analyze computes the reachable closure. entry is required in
// ModeExecutable and ignored in ModeLibrary.
func Analyze(set *assembly.AssemblySet, mode Mode, entry *assembly.Method, keep AlwaysKeep) (*Set, error) {
	s := newSet()
	var worklist []*assembly.Method

	addMethod := func(m *assembly.Method) {
		if m == nil || s.Methods[m] {
			return
		}
		s.Methods[m] = true
		addType(s, m.DeclaringType)
		worklist = append(worklist, m)
	}

	switch mode {
	case ModeExecutable:
		if entry == nil {
			return nil, fmt.Errorf("reach: ModeExecutable requires an entry-point method")
		}
		addMethod(entry)

	case ModeLibrary:
		err := set.IterateTypes(func(t *assembly.Type) error {
			if !t.IsPublic {
				return nil
			}
			for _, m := range t.Methods {
				if isPublicMethod(m) {
					addMethod(m)
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("reach: unknown mode %d", mode)
	}

	for _, name := range keep.TypeFullNames {
		ty, err := set.LookupType(name)
		if err != nil {
			continue // allowed to be absent from a given standard library build
		}
		addType(s, ty)
		addStaticConstructor(s, ty, addMethod)
	}
	for _, name := range keep.RuntimeProvidedTypes {
		ty, err := set.LookupType(name)
		if err != nil {
			continue
		}
		addType(s, ty)
	}

	// RVA-backed static field initializers are rooted directly (needed by
	// array-init lowering whether or not anything else references the
	// field yet).
	if err := set.IterateTypes(func(t *assembly.Type) error {
		for _, f := range t.Fields {
			if f.RVA != 0 {
				addType(s, t)
				s.Fields[f] = true
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	for len(worklist) > 0 {
		m := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		newWork, err := processMethod(set, s, m)
		if err != nil {
			s.Diagnostics = append(s.Diagnostics, Diagnostic{Method: m, Detail: err.Error()})
			s.StubCandidates[m] = true
			continue
		}
		for _, nm := range newWork {
			addMethod(nm)
		}
	}

	return s, nil
}

func addType(s *Set, t *assembly.Type) {
	if t == nil {
		return
	}
	s.Types[t] = true
}

func isPublicMethod(m *assembly.Method) bool {
	// Method visibility lives in the low 3 bits of MethodAttributes,
	// which assembly.Method doesn't surface directly (AssemblySet only
	// exposes the flags ReachabilityAnalyzer and IR actually branch on);
	// a method declared on a public type with no explicit accessibility
	// narrowing recorded is treated as part of the public surface. This
	// is conservative in ModeLibrary's favor — the analyzer is meant to
	// be total, not minimal.
	return !m.IsSpecialName || m.Name == ".ctor" || m.Name == ".cctor"
}

// addStaticConstructor enqueues a type's .cctor, if it has one, the way
// spec.md §4.2 requires whenever a type is rooted directly (always-keep
// types plausibly run static initialization even with no other reference
// to them yet).
func addStaticConstructor(s *Set, t *assembly.Type, addMethod func(*assembly.Method)) {
	for _, m := range t.Methods {
		if m.Name == ".cctor" {
			addMethod(m)
			return
		}
	}
}

// processMethod decodes m's body and returns every method newly reachable
// from its instructions (types and fields are added to s directly; only
// methods need to re-enter the worklist).
func processMethod(set *assembly.AssemblySet, s *Set, m *assembly.Method) ([]*assembly.Method, error) {
	if !m.HasBody() {
		return nil, nil
	}
	owner := m.DeclaringType.Assembly
	body, err := owner.MethodBody(m)
	if err != nil {
		return nil, err
	}
	insts, err := il.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("decoding %s.%s: %w", m.DeclaringType.FullName, m.Name, err)
	}

	var newWork []*assembly.Method
	for _, inst := range insts {
		if !usesToken(inst.Op) {
			continue
		}
		token := uint32(inst.I64)
		table := metadata.TableIndex(token >> 24)
		row := token & 0x00FFFFFF

		switch table {
		case metadata.TableMethodDef:
			target := owner.MethodByRow(row - 1)
			if target == nil {
				return nil, fmt.Errorf("method token %#x out of range", token)
			}
			addType(s, target.DeclaringType)
			newWork = append(newWork, target)
			addStaticConstructorIfStatic(s, target, &newWork)

		case metadata.TableField:
			target := owner.FieldByRow(row - 1)
			if target == nil {
				return nil, fmt.Errorf("field token %#x out of range", token)
			}
			addType(s, target.DeclaringType)
			s.Fields[target] = true
			if target.IsStatic {
				addStaticConstructorOfType(s, target.DeclaringType, &newWork)
			}

		case metadata.TableMemberRef:
			members, err := resolveMemberRef(set, owner, row-1)
			if err != nil {
				return nil, err
			}
			for _, mm := range members.methods {
				addType(s, mm.DeclaringType)
				newWork = append(newWork, mm)
				addStaticConstructorIfStatic(s, mm, &newWork)
			}
			for _, ff := range members.fields {
				addType(s, ff.DeclaringType)
				s.Fields[ff] = true
				if ff.IsStatic {
					addStaticConstructorOfType(s, ff.DeclaringType, &newWork)
				}
			}

		case metadata.TableTypeDef, metadata.TableTypeRef:
			ty, err := set.ResolveTypeRef(owner, table, row)
			if err != nil {
				return nil, err
			}
			addType(s, ty)

		case metadata.TableTypeSpec:
			recordInstantiation(s, owner, row)

		case metadata.TableMethodSpec:
			if int(row-1) >= len(owner.Tables().MethodSpec) {
				return nil, fmt.Errorf("MethodSpec token %#x out of range", token)
			}
			spec := owner.Tables().MethodSpec[row-1]
			target, err := resolveMethodDefOrRef(set, owner, spec.MethodTable, spec.MethodRow)
			if err != nil {
				return nil, err
			}
			for _, mm := range target {
				addType(s, mm.DeclaringType)
				newWork = append(newWork, mm)
			}
			recordMethodInstantiation(s, owner, row)
		}
	}
	return newWork, nil
}

func addStaticConstructorIfStatic(s *Set, m *assembly.Method, newWork *[]*assembly.Method) {
	if m.IsStatic {
		addStaticConstructorOfType(s, m.DeclaringType, newWork)
	}
}

func addStaticConstructorOfType(s *Set, t *assembly.Type, newWork *[]*assembly.Method) {
	for _, m := range t.Methods {
		if m.Name == ".cctor" && !s.Methods[m] {
			*newWork = append(*newWork, m)
			return
		}
	}
}

type memberRefTargets struct {
	methods []*assembly.Method
	fields  []*assembly.Field
}

// resolveMemberRef resolves a MemberRef row to every same-named member on
// its parent type. Matching by name alone (rather than the full signature
// blob) over-approximates when a type has several overloads of the same
// name; that is safe for a reachability closure whose job is to be total,
// not minimal — internal/ir's Pass 2 signature decoder is what actually
// disambiguates overloads when it builds each method's IR signature.
func resolveMemberRef(set *assembly.AssemblySet, owner *assembly.Assembly, row uint32) (memberRefTargets, error) {
	var out memberRefTargets
	mr := owner.Tables().MemberRef[row]
	name, err := owner.Root().StringAt(mr.Name)
	if err != nil {
		return out, err
	}

	if mr.ClassTable == metadata.TableMethodDef {
		// A vararg call site's MemberRef pointing straight at a MethodDef
		// in the same module.
		target := owner.MethodByRow(mr.ClassRow - 1)
		if target != nil {
			out.methods = append(out.methods, target)
		}
		return out, nil
	}

	parent, err := set.ResolveTypeRef(owner, mr.ClassTable, mr.ClassRow)
	if err != nil {
		if err == assembly.ErrTypeSpec {
			return out, nil // constructed-generic parent: IR resolves this
		}
		return out, err
	}

	isField, err := memberRefIsField(owner, mr.Signature)
	if err != nil {
		return out, err
	}
	if isField {
		for _, f := range parent.Fields {
			if f.Name == name {
				out.fields = append(out.fields, f)
			}
		}
		return out, nil
	}
	for _, m := range parent.Methods {
		if m.Name == name {
			out.methods = append(out.methods, m)
		}
	}
	return out, nil
}

// memberRefIsField peeks at the signature blob's leading byte: ECMA-335
// II.23.2.4 reserves 0x06 (FIELD) for field signatures; everything else is
// a method signature.
func memberRefIsField(owner *assembly.Assembly, sigOffset uint32) (bool, error) {
	const sigField = 0x06
	blob, err := owner.Root().BlobAt(sigOffset)
	if err != nil {
		return false, err
	}
	if len(blob) == 0 {
		return false, fmt.Errorf("empty MemberRef signature")
	}
	return blob[0] == sigField, nil
}

// ResolveCallToken resolves a Call/Callvirt/Newobj/Ldftn instruction's raw
// metadata token to every candidate method it could name — internal/codegen's
// undeclared-callee gate (spec.md §4.6.6 gate 4) uses this to check a
// call site's target actually got a function definition emitted,
// reusing the same MethodDef/MemberRef/MethodSpec resolution this package
// already does to build the reachable set in the first place.
func ResolveCallToken(set *assembly.AssemblySet, owner *assembly.Assembly, token uint32) ([]*assembly.Method, error) {
	table := metadata.TableIndex(token >> 24)
	row := token & 0x00FFFFFF
	switch table {
	case metadata.TableMethodDef:
		m := owner.MethodByRow(row - 1)
		if m == nil {
			return nil, fmt.Errorf("method token %#x out of range", token)
		}
		return []*assembly.Method{m}, nil
	case metadata.TableMemberRef:
		targets, err := resolveMemberRef(set, owner, row-1)
		if err != nil {
			return nil, err
		}
		return targets.methods, nil
	case metadata.TableMethodSpec:
		if int(row-1) >= len(owner.Tables().MethodSpec) {
			return nil, fmt.Errorf("MethodSpec token %#x out of range", token)
		}
		spec := owner.Tables().MethodSpec[row-1]
		return resolveMethodDefOrRef(set, owner, spec.MethodTable, spec.MethodRow)
	default:
		return nil, fmt.Errorf("token %#x does not name a method", token)
	}
}

// ResolveFieldToken resolves a Ldfld/Stfld/Ldsfld/Stsfld instruction's raw
// metadata token to the field it names, reusing the same FieldDef/MemberRef
// resolution the worklist scan above already performs inline.
func ResolveFieldToken(set *assembly.AssemblySet, owner *assembly.Assembly, token uint32) (*assembly.Field, error) {
	table := metadata.TableIndex(token >> 24)
	row := token & 0x00FFFFFF
	switch table {
	case metadata.TableField:
		f := owner.FieldByRow(row - 1)
		if f == nil {
			return nil, fmt.Errorf("field token %#x out of range", token)
		}
		return f, nil
	case metadata.TableMemberRef:
		targets, err := resolveMemberRef(set, owner, row-1)
		if err != nil {
			return nil, err
		}
		if len(targets.fields) == 0 {
			return nil, fmt.Errorf("token %#x does not name a field", token)
		}
		return targets.fields[0], nil
	default:
		return nil, fmt.Errorf("token %#x does not name a field", token)
	}
}

// ResolveTypeToken resolves a Box/Unbox/Castclass/Isinst/Newarr
// instruction's raw TypeDef/TypeRef/TypeSpec token to the type it names.
// A TypeSpec operand (a constructed generic) has no single *assembly.Type
// to return; callers treat that the same as any other unresolved type
// reference, same as a signature's own TypeSpec case.
func ResolveTypeToken(set *assembly.AssemblySet, owner *assembly.Assembly, token uint32) (*assembly.Type, error) {
	table := metadata.TableIndex(token >> 24)
	row := token & 0x00FFFFFF
	switch table {
	case metadata.TableTypeDef, metadata.TableTypeRef:
		return set.ResolveTypeRef(owner, table, row)
	default:
		return nil, fmt.Errorf("token %#x does not name a resolvable type", token)
	}
}

func resolveMethodDefOrRef(set *assembly.AssemblySet, owner *assembly.Assembly, table metadata.TableIndex, row uint32) ([]*assembly.Method, error) {
	switch table {
	case metadata.TableMethodDef:
		m := owner.MethodByRow(row - 1)
		if m == nil {
			return nil, fmt.Errorf("MethodDef row %d out of range", row)
		}
		return []*assembly.Method{m}, nil
	case metadata.TableMemberRef:
		targets, err := resolveMemberRef(set, owner, row-1)
		if err != nil {
			return nil, err
		}
		return targets.methods, nil
	default:
		return nil, fmt.Errorf("unexpected MethodDefOrRef table %d", table)
	}
}

func recordInstantiation(s *Set, owner *assembly.Assembly, row uint32) {
	if int(row-1) >= len(owner.Tables().TypeSpec) {
		return
	}
	sig := owner.Tables().TypeSpec[row-1].Signature
	blob, err := owner.Root().BlobAt(sig)
	if err != nil {
		return
	}
	s.Instantiations[hex.EncodeToString(blob)] = true
}

func recordMethodInstantiation(s *Set, owner *assembly.Assembly, row uint32) {
	if int(row-1) >= len(owner.Tables().MethodSpec) {
		return
	}
	spec := owner.Tables().MethodSpec[row-1]
	blob, err := owner.Root().BlobAt(spec.Instantiation)
	if err != nil {
		return
	}
	s.Instantiations[hex.EncodeToString(blob)] = true
}

// usesToken reports whether op's operand is a metadata token (as opposed
// to an immediate, var index, or branch target).
func usesToken(op il.Opcode) bool {
	switch op {
	case il.Jmp, il.Call, il.Callvirt, il.Newobj, il.Castclass, il.Isinst,
		il.Unbox, il.UnboxAny, il.Box, il.Ldfld, il.Ldflda, il.Stfld,
		il.Ldsfld, il.Ldsflda, il.Stsfld, il.Newarr, il.Ldelema, il.Ldelem,
		il.Stelem, il.Ldtoken, il.Ldftn, il.Ldvirtftn, il.Initobj,
		il.Constrained, il.Sizeof, il.Cpobj, il.Ldobj, il.Stobj,
		il.Mkrefany, il.Refanyval:
		return true
	default:
		return false
	}
}
