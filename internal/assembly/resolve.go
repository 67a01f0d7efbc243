package assembly

import (
	"fmt"

	"github.com/cil2cpp/aotc/internal/metadata"
)

// ErrTypeSpec is returned by ResolveTypeRef for a TypeSpec coded target:
// TypeSpec rows describe constructed generics, arrays, pointers and
// byrefs via a signature blob, not a name, so resolving one into a *Type
// needs signature decoding — internal/ir Pass 2/6's job, not AssemblySet's.
// Callers that hit this should decode the TypeSpec's blob instead of
// calling ResolveTypeRef on it.
var ErrTypeSpec = fmt.Errorf("TypeSpec requires signature decoding, not name resolution")

// ResolveTypeRef resolves a TypeDefOrRef-coded reference (as captured on
// Type.Interfaces or Type.ExtendsTable/ExtendsRow) to the Type it names,
// searching across every assembly this set has open.
func (s *AssemblySet) ResolveTypeRef(owner *Assembly, table metadata.TableIndex, row uint32) (*Type, error) {
	switch table {
	case metadata.TableTypeDef:
		idx := row - 1
		if int(idx) >= len(owner.Types) {
			return nil, fmt.Errorf("TypeDef row %d out of range in %s", row, owner.CanonicalName)
		}
		return owner.Types[idx], nil

	case metadata.TableTypeRef:
		idx := row - 1
		if int(idx) >= len(owner.tables.TypeRef) {
			return nil, fmt.Errorf("TypeRef row %d out of range in %s", row, owner.CanonicalName)
		}
		return s.resolveTypeRefRow(owner, idx)

	case metadata.TableTypeSpec:
		return nil, ErrTypeSpec

	default:
		return nil, fmt.Errorf("unexpected coded table %d for TypeDefOrRef", table)
	}
}

func (s *AssemblySet) resolveTypeRefRow(owner *Assembly, idx uint32) (*Type, error) {
	ref := owner.tables.TypeRef[idx]
	typeName, err := owner.root.StringAt(ref.TypeName)
	if err != nil {
		return nil, err
	}
	typeNamespace, err := owner.root.StringAt(ref.TypeNamespace)
	if err != nil {
		return nil, err
	}

	switch ref.ResolutionScopeTable {
	case metadata.TableModule, metadata.TableModuleRef:
		return lookupByNamespaceName(owner, typeNamespace, typeName)

	case metadata.TableAssemblyRef:
		scopeIdx := ref.ResolutionScopeRow - 1
		if int(scopeIdx) >= len(owner.tables.AssemblyRef) {
			return nil, fmt.Errorf("AssemblyRef scope row %d out of range", ref.ResolutionScopeRow)
		}
		refName, err := owner.root.StringAt(owner.tables.AssemblyRef[scopeIdx].Name)
		if err != nil {
			return nil, err
		}
		target, ok := s.byName[refName]
		if !ok {
			return nil, fmt.Errorf("assembly %q (scope of TypeRef %s.%s) not open", refName, typeNamespace, typeName)
		}
		return lookupByNamespaceName(target, typeNamespace, typeName)

	case metadata.TableTypeRef:
		enclosing, err := s.resolveTypeRefRow(owner, ref.ResolutionScopeRow-1)
		if err != nil {
			return nil, err
		}
		for _, nested := range enclosing.Assembly.Types {
			if er, ok := enclosing.Assembly.enclosingRow[nested.Row]; ok && er == enclosing.Row && nested.Name == typeName {
				return nested, nil
			}
		}
		return nil, fmt.Errorf("nested type %s not found under %s", typeName, enclosing.FullName)

	default:
		return nil, fmt.Errorf("unsupported TypeRef resolution scope table %d", ref.ResolutionScopeTable)
	}
}

func lookupByNamespaceName(a *Assembly, namespace, name string) (*Type, error) {
	full := name
	if namespace != "" {
		full = namespace + "." + name
	}
	ty, ok := a.byFullName[full]
	if !ok {
		return nil, fmt.Errorf("type %s not found in %s", full, a.CanonicalName)
	}
	return ty, nil
}

// LookupType resolves a canonical full name ("Namespace.Name" or, for a
// nested type, "Namespace.Enclosing+Nested") across every open assembly.
// This is AssemblySet's "lookup-type-by-canonical-name" contract
// (SPEC_FULL.md §4.1).
func (s *AssemblySet) LookupType(fullName string) (*Type, error) {
	for _, a := range s.order {
		if ty, ok := a.byFullName[fullName]; ok {
			return ty, nil
		}
	}
	return nil, fmt.Errorf("type %s not found in any open assembly", fullName)
}

// LookupMethod resolves a method by declaring type, name, and parameter
// count (full signature-blob comparison belongs to internal/ir, which
// already has the decoded parameter types in hand by the time it needs to
// disambiguate overloads; AssemblySet only narrows by arity).
func (s *AssemblySet) LookupMethod(t *Type, name string, paramCount int) (*Method, error) {
	for _, m := range t.Methods {
		if m.Name == name && len(m.Params) == paramCount {
			return m, nil
		}
	}
	return nil, fmt.Errorf("method %s(%d params) not found on %s", name, paramCount, t.FullName)
}

// ResolveInterfaces resolves every InterfaceImpl recorded on t to the
// interface Type it names, skipping (rather than failing on) a TypeSpec
// target — a generic interface instantiation needs internal/ir's signature
// decoder, not AssemblySet's name resolution.
func (s *AssemblySet) ResolveInterfaces(t *Type) ([]*Type, error) {
	var out []*Type
	for _, ref := range t.Interfaces {
		iface, err := s.ResolveTypeRef(t.Assembly, ref.Table, ref.Row)
		if err == ErrTypeSpec {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, iface)
	}
	return out, nil
}

// IterateTypes calls fn for every type in every open assembly, in open
// (primary-first) / TypeDef-row order — AssemblySet's "iterate-all-types"
// contract.
func (s *AssemblySet) IterateTypes(fn func(*Type) error) error {
	for _, a := range s.order {
		for _, ty := range a.Types {
			if err := fn(ty); err != nil {
				return err
			}
		}
	}
	return nil
}
