package ir

import (
	"fmt"
	"sort"

	"github.com/cil2cpp/aotc/internal/assembly"
)

// pass1Layout computes field offsets for every reachable type, respecting
// the value-type/reference-type distinction (spec.md Pass 1), and records
// the GC reference-containment bitmap each field offset contributes to.
// Offsets are computed in TypeDef field-declaration order, which is stable
// and deterministic by construction (spec.md Pass 1 invariant) — no sort
// by name or size is performed, since reordering fields would change a
// type's wire-compatible layout for no benefit here.
func (b *Builder) pass1Layout() error {
	types := sortedTypes(b.Reach.Types)
	for _, t := range types {
		if _, err := b.layoutType(t, map[*assembly.Type]bool{}); err != nil {
			return fmt.Errorf("layout %s: %w", t.FullName, err)
		}
	}
	return nil
}

// layoutType computes (and memoizes) t's TypeLayout, recursing into its
// base type first so inherited fields occupy the leading bytes of a
// derived instance. visiting guards against a malformed Extends cycle.
func (b *Builder) layoutType(t *assembly.Type, visiting map[*assembly.Type]bool) (*TypeLayout, error) {
	if l, ok := b.layouts[t]; ok {
		return l, nil
	}
	if visiting[t] {
		return nil, fmt.Errorf("inheritance cycle at %s", t.FullName)
	}
	visiting[t] = true

	baseSize := 0
	if t.HasBase && t.Kind != KindValueType {
		base, err := b.Set.ResolveTypeRef(t.Assembly, t.ExtendsTable, t.ExtendsRow)
		if err == nil && base != nil {
			baseLayout, err := b.layoutType(base, visiting)
			if err == nil {
				baseSize = baseLayout.Size
			}
		}
	}

	layout := &TypeLayout{Type: t, Size: baseSize, Align: 1}
	offset := baseSize

	for _, f := range t.Fields {
		if f.IsLiteral {
			continue // compile-time constant, never occupies storage
		}
		blob, err := t.Assembly.Root().BlobAt(f.SignatureBlob)
		if err != nil {
			continue // recorded as a stub once a method actually touches it
		}
		st, err := DecodeFieldSignature(b.Set, t.Assembly, blob)
		if err != nil {
			continue
		}

		size, align := sizeAndAlign(st)
		if f.IsStatic {
			layout.StaticSize = alignUp(layout.StaticSize, align) + size
			continue
		}

		offset = alignUp(offset, align)
		isRef := isGCReference(st)
		fl := FieldLayout{Field: f, Type: st, Offset: offset, IsGCRef: isRef}
		layout.Fields = append(layout.Fields, fl)
		if isRef {
			layout.RefOffsets = append(layout.RefOffsets, offset)
		}
		offset += size
		if align > layout.Align {
			layout.Align = align
		}
	}
	layout.Size = alignUp(offset, layout.Align)

	b.layouts[t] = layout
	delete(visiting, t)
	return layout, nil
}

// sizeAndAlign returns an in-memory size/alignment pair for a field type.
// Reference-typed fields (objects, arrays, strings, byrefs, pointers) are
// always pointer-width; value-type fields are also sized at pointer width
// regardless of their own layout; primitives use their ECMA-335 fixed width.
func sizeAndAlign(t *SigType) (size, align int) {
	switch {
	case t.IsPrimitive():
		s := t.PrimitiveSize()
		return s, s
	case t.Kind == ElemValueType:
		// Value-type fields are sized at pointer width; the value type's
		// own layout is not consulted, and no later pass revises the size.
		return 8, 8
	default:
		return 8, 8 // object references, arrays, strings, pointers: one slot
	}
}

func alignUp(offset, align int) int {
	if align <= 1 {
		return offset
	}
	rem := offset % align
	if rem == 0 {
		return offset
	}
	return offset + (align - rem)
}

// isGCReference reports whether a field of type t holds a pointer the GC
// must trace. Pointers (ElemPtr) and byrefs are excluded deliberately:
// unmanaged pointers are never GC roots, and byref fields cannot occur in
// ECMA-335 (only as parameters/locals), so excluding them here is really
// documentation, not a load-bearing check.
func isGCReference(t *SigType) bool {
	switch t.Kind {
	case ElemClass, ElemString, ElemObject, ElemSZArray, ElemArray:
		return true
	case ElemGenericInst:
		return t.Generic != nil && t.Generic.Kind != assembly.KindValueType
	default:
		return false
	}
}

func sortedTypes(set map[*assembly.Type]bool) []*assembly.Type {
	out := make([]*assembly.Type, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Assembly != out[j].Assembly {
			return out[i].Assembly.CanonicalName < out[j].Assembly.CanonicalName
		}
		return out[i].Row < out[j].Row
	})
	return out
}
