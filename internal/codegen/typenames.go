package codegen

import (
	"fmt"

	"github.com/cil2cpp/aotc/internal/ir"
)

// cppPrimitive maps an ECMA-335 primitive element type to its fixed-width
// C++ equivalent. Reference, array, and generic-parameter kinds are
// handled by typeName instead.
func cppPrimitive(k ir.ElementType) (string, bool) {
	switch k {
	case ir.ElemBoolean:
		return "rtg_bool", true
	case ir.ElemChar:
		return "char16_t", true
	case ir.ElemI1:
		return "int8_t", true
	case ir.ElemU1:
		return "uint8_t", true
	case ir.ElemI2:
		return "int16_t", true
	case ir.ElemU2:
		return "uint16_t", true
	case ir.ElemI4:
		return "int32_t", true
	case ir.ElemU4:
		return "uint32_t", true
	case ir.ElemI8:
		return "int64_t", true
	case ir.ElemU8:
		return "uint64_t", true
	case ir.ElemR4:
		return "float", true
	case ir.ElemR8:
		return "double", true
	case ir.ElemI:
		return "intptr_t", true
	case ir.ElemU:
		return "uintptr_t", true
	case ir.ElemVoid:
		return "void", true
	case ir.ElemString:
		return "rtg_String*", true
	case ir.ElemObject:
		return "rtg_Object*", true
	default:
		return "", false
	}
}

// typeName resolves a SigType to the C++ identifier the code generator
// emits for it — a builtin for primitives, a struct-pointer or value type
// for a class/value type (by way of the shared NameMapper), and a nested
// pointer/array form for everything else. It returns an error for an
// unresolved nominal reference (the layoutOf/namemap lookup itself
// failing), an open generic parameter, a generic instantiation without a
// resolved definition, and an element kind with no C++ form; every caller
// treats that as an unknown-type gate failure (spec.md §4.6.6 gate 2).
func (g *generator) typeName(t *ir.SigType) (string, error) {
	if t == nil {
		return "void", nil
	}
	if name, ok := cppPrimitive(t.Kind); ok {
		return name, nil
	}
	switch t.Kind {
	case ir.ElemClass:
		if t.Class == nil {
			return "", fmt.Errorf("codegen: class type with no resolved declaration")
		}
		ident, err := g.mod.Names.TypeName(t.Class.FullName)
		if err != nil {
			return "", err
		}
		if g.runtime.IsRuntimeProvided(t.Class.FullName) {
			return "rtg_" + ident + "*", nil
		}
		return ident + "*", nil

	case ir.ElemValueType:
		if t.Class == nil {
			return "", fmt.Errorf("codegen: value type with no resolved declaration")
		}
		ident, err := g.mod.Names.TypeName(t.Class.FullName)
		if err != nil {
			return "", err
		}
		return ident, nil

	case ir.ElemVar, ir.ElemMVar:
		return "", fmt.Errorf("codegen: open generic parameter reached emission")

	case ir.ElemGenericInst:
		if t.Generic == nil {
			return "", fmt.Errorf("codegen: generic instantiation with no resolved open definition")
		}
		argIdents := make([]string, len(t.GenericArgs))
		for i, a := range t.GenericArgs {
			n, err := g.typeName(a)
			if err != nil {
				return "", err
			}
			argIdents[i] = n
		}
		ident, err := g.mod.Names.GenericTypeName(t.Generic.FullName, argIdents)
		if err != nil {
			return "", err
		}
		return ident + "*", nil

	case ir.ElemSZArray, ir.ElemArray:
		elemName, err := g.typeName(t.Elem)
		if err != nil {
			return "", err
		}
		rank := t.ArrayRank
		if t.Kind == ir.ElemSZArray {
			rank = 1
		}
		ident, err := g.mod.Names.ArrayTypeName(elemName, rank, t.Kind == ir.ElemArray)
		if err != nil {
			return "", err
		}
		return ident + "*", nil

	case ir.ElemPtr:
		elemName, err := g.typeName(t.Elem)
		if err != nil {
			return "", err
		}
		return elemName + "*", nil

	case ir.ElemByRef:
		elemName, err := g.typeName(t.Elem)
		if err != nil {
			return "", err
		}
		if _, err := g.mod.Names.ByRefTypeName(elemName); err != nil {
			return "", err
		}
		return elemName + "*", nil

	default:
		return "", fmt.Errorf("codegen: no C++ representation for element type %d", t.Kind)
	}
}

// methodName resolves a MethodIR to its mangled C++ function identifier.
func (g *generator) methodName(mi *ir.MethodIR) (string, error) {
	declIdent, err := g.mod.Names.TypeName(mi.Method.DeclaringType.FullName)
	if err != nil {
		return "", err
	}
	paramIdents := make([]string, len(mi.Params))
	for i, p := range mi.Params {
		n, err := g.typeName(p.Type)
		if err != nil {
			return "", err
		}
		paramIdents[i] = n
	}
	return g.mod.Names.MethodName(declIdent, mi.Method.Name, paramIdents)
}
