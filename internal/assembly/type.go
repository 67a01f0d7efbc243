package assembly

import "github.com/cil2cpp/aotc/internal/metadata"

// Kind classifies a Type the way SPEC_FULL.md §3's Type entity requires.
// AssemblySet resolves what it can from TypeDef flags and the immediate
// base type; internal/ir Pass 1 is free to refine Array/Pointer/ByRef
// kinds it synthesizes itself (they have no TypeDef row at all).
type Kind int

const (
	KindClass Kind = iota
	KindValueType
	KindEnum
	KindInterface
	KindDelegate
	KindArray
	KindPointer
	KindByRef
	KindGenericParameter
)

// TypeAttributes bits this package inspects (ECMA-335 II.23.1.15); only the
// subset AssemblySet needs to classify Kind and visibility.
const (
	tdInterface      = 0x00000020
	tdAbstract       = 0x00000080
	tdSealed         = 0x00000100
	tdVisibilityMask = 0x00000007
	tdPublic         = 0x00000001
	tdNestedPublic   = 0x00000002
)

// Type is one TypeDef row, resolved into a queryable node: name, kind,
// declared members, and an unresolved base-type reference (resolved lazily
// through the owning AssemblySet, since the base can live in another
// assembly).
type Type struct {
	Assembly      *Assembly
	Row           uint32 // 0-based TypeDef row index
	row           metadata.TypeDefRow
	Name          string
	Namespace     string
	FullName      string
	Kind          Kind
	IsAbstract    bool
	IsSealed      bool
	IsPublic      bool
	ExtendsTable  metadata.TableIndex
	ExtendsRow    uint32
	HasBase       bool
	Fields        []*Field
	Methods       []*Method
	Interfaces    []typeRef // resolved lazily via AssemblySet.ResolveTypeRef
	GenericParams []*GenericParam
}

// typeRef is an unresolved TypeDefOrRef coded index captured at build time;
// AssemblySet.ResolveTypeRef turns it into a *Type on demand so that
// resolution order (and thus which assemblies must already be open) never
// has to be front-loaded into assembly.Open.
type typeRef struct {
	Table metadata.TableIndex
	Row   uint32
}

// GenericParam is one GenericParam row owned by a Type or Method.
type GenericParam struct {
	Number uint16
	Name   string
}

// IsGeneric reports whether this type declares any generic parameters of
// its own (an "open" type in spec.md terms, before any substitution).
func (t *Type) IsGeneric() bool { return len(t.GenericParams) > 0 }
