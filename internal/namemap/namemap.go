// Package namemap produces target-language identifiers from canonical IL
// names: deterministic, collision-free, and injective over the reachable
// name set (spec.md §4.4). Grounded in tinyrange-rtg/std/compiler/
// frontend.go's Package.QualName/QualPtrName qualified-name building and
// ir.go's qualifyTypeName, generalized from a flat package-qualified name
// to IL's richer space (generic arity/arguments, array rank, pointer and
// byref markers, overload disambiguation by mangled parameter list).
package namemap

import (
	"fmt"
	"strings"
)

// legalRune reports whether r is legal in a target-language identifier
// (ASCII letters, digits, underscore).
func legalRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
}

// escape substitutes every illegal character with _XX (its hex byte value),
// the same one-rune-in, fixed-width-out scheme regardless of position, so
// the mapping stays injective (no collision between an escaped sequence and
// a coincidentally identical legal substring).
func escape(s string) string {
	var b strings.Builder
	for _, r := range s {
		if legalRune(r) {
			b.WriteRune(r)
			continue
		}
		if r < 256 {
			fmt.Fprintf(&b, "_%02X", r)
		} else {
			fmt.Fprintf(&b, "_U%04X", r)
		}
	}
	return b.String()
}

// Mapper assigns and remembers target identifiers. Re-running it on the
// same canonical name always returns the same identifier (memoization),
// and two distinct canonical names never collide (the mapping functions
// below are built to be injective; Mapper's seen set exists only to make a
// violation — a bug upstream, not something expected in practice — visible
// immediately rather than silently emitting a name clash).
type Mapper struct {
	cache map[string]string
	seen  map[string]string // identifier -> the canonical name that claimed it
}

// NewMapper returns an empty Mapper.
func NewMapper() *Mapper {
	return &Mapper{cache: map[string]string{}, seen: map[string]string{}}
}

// TypeName maps a type's canonical full name (namespace.Name, or
// namespace.Enclosing+Nested for a nested type) to a struct/class
// identifier.
func (m *Mapper) TypeName(fullName string) (string, error) {
	return m.intern(fullName, "T_"+escape(strings.ReplaceAll(strings.ReplaceAll(fullName, ".", "_"), "+", "_")))
}

// GenericTypeName maps a constructed generic's full name plus its already-
// mangled type argument identifiers to one specialization identifier, the
// fixed textual scheme spec.md §4.4 requires: arity and argument list
// encoded so two different instantiations of the same open generic never
// collide.
func (m *Mapper) GenericTypeName(fullName string, typeArgIdents []string) (string, error) {
	key := fullName + "<" + strings.Join(typeArgIdents, ",") + ">"
	ident := "T_" + escape(strings.ReplaceAll(fullName, ".", "_")) + fmt.Sprintf("_G%d", len(typeArgIdents))
	for _, a := range typeArgIdents {
		ident += "_" + a
	}
	return m.intern(key, ident)
}

// ArrayTypeName maps an element identifier plus rank to the array
// specialization's identifier. Rank 1 (SZArray) and rank N (multi-
// dimensional) get distinct suffixes so they never collide with each
// other even when N happens to equal 1's encoding.
func (m *Mapper) ArrayTypeName(elemIdent string, rank int, multiDim bool) (string, error) {
	suffix := fmt.Sprintf("_Arr%d", rank)
	if multiDim {
		suffix = fmt.Sprintf("_MDArr%d", rank)
	}
	key := elemIdent + suffix
	return m.intern(key, "T_"+elemIdent+suffix)
}

// PointerTypeName maps a pointee identifier to its pointer-level
// specialization (levels > 1 for T**, T***, ...).
func (m *Mapper) PointerTypeName(elemIdent string, levels int) (string, error) {
	key := fmt.Sprintf("%s_Ptr%d", elemIdent, levels)
	return m.intern(key, "T_"+key)
}

// ByRefTypeName maps a referent identifier to its byref marker form.
func (m *Mapper) ByRefTypeName(elemIdent string) (string, error) {
	key := elemIdent + "_Ref"
	return m.intern(key, "T_"+key)
}

// MethodName maps a declaring type's identifier, a method name, and its
// mangled parameter-type list to a function identifier, disambiguating
// overloads by appending the parameter-list suffix spec.md §4.4 requires.
func (m *Mapper) MethodName(declaringTypeIdent, methodName string, paramTypeIdents []string) (string, error) {
	key := declaringTypeIdent + "::" + methodName + "(" + strings.Join(paramTypeIdents, ",") + ")"
	ident := "M_" + declaringTypeIdent + "_" + escape(methodName)
	if len(paramTypeIdents) > 0 {
		ident += "_P" + strings.Join(paramTypeIdents, "_")
	}
	return m.intern(key, ident)
}

// GenericMethodName maps a constructed generic method instantiation the
// same way GenericTypeName does for types.
func (m *Mapper) GenericMethodName(declaringTypeIdent, methodName string, paramTypeIdents, methodTypeArgIdents []string) (string, error) {
	key := declaringTypeIdent + "::" + methodName + "!<" + strings.Join(methodTypeArgIdents, ",") + ">(" + strings.Join(paramTypeIdents, ",") + ")"
	ident := "M_" + declaringTypeIdent + "_" + escape(methodName) + fmt.Sprintf("_MG%d", len(methodTypeArgIdents))
	for _, a := range methodTypeArgIdents {
		ident += "_" + a
	}
	if len(paramTypeIdents) > 0 {
		ident += "_P" + strings.Join(paramTypeIdents, "_")
	}
	return m.intern(key, ident)
}

// intern records (or recalls) the identifier for key, and fails the build
// if the same identifier was already claimed by a different key — spec.md
// §4.4's required abort on an alphabet/collision violation.
func (m *Mapper) intern(key, ident string) (string, error) {
	if existing, ok := m.cache[key]; ok {
		return existing, nil
	}
	if owner, ok := m.seen[ident]; ok && owner != key {
		return "", fmt.Errorf("namemap: identifier %q claimed by both %q and %q", ident, owner, key)
	}
	m.cache[key] = ident
	m.seen[ident] = key
	return ident, nil
}

// CheckAlphabet verifies ident contains only legal identifier characters,
// the secondary check spec.md §4.4 requires before emission.
func CheckAlphabet(ident string) error {
	for _, r := range ident {
		if !legalRune(r) {
			return fmt.Errorf("namemap: identifier %q contains illegal character %q", ident, r)
		}
	}
	if ident == "" {
		return fmt.Errorf("namemap: empty identifier")
	}
	return nil
}
