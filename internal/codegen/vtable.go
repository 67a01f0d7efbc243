package codegen

import (
	"fmt"
	"strings"

	"github.com/cil2cpp/aotc/internal/ir"
)

// emitVTables renders one v-table array per reachable type (spec.md
// §4.6.3): a plain array of function pointers in slot order. A slot that
// corresponds to an Object-defined virtual with no override anywhere in
// the chain falls back to the runtime's default implementation for that
// virtual (ToString/Equals/GetHashCode), grounded in backend.go's
// dispatchEntry/CallFixup data-plus-fixup shape — here the "fixup" is a
// deferred symbol reference resolved once every method's mangled name is
// known, rather than a patched byte offset.
func (g *generator) emitVTables() (string, error) {
	var b strings.Builder
	for _, vt := range g.mod.VTables {
		typeIdent, err := g.mod.Names.TypeName(vt.Type.FullName)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "static void* %s_vtable[] = {\n", typeIdent)
		for _, slot := range vt.Slots {
			fnName, err := g.slotFunctionName(slot)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, "  (void*)&%s, // slot %d: %s\n", fnName, slot.Index, slot.Method.Name)
		}
		b.WriteString("};\n\n")
	}
	for _, it := range g.mod.InterfaceTables {
		typeIdent, err := g.mod.Names.TypeName(it.Type.FullName)
		if err != nil {
			return "", err
		}
		ifaceIdent, err := g.mod.Names.TypeName(it.Interface.FullName)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "static void* %s_%s_itable[] = {\n", typeIdent, ifaceIdent)
		for _, slot := range it.Slots {
			fnName, err := g.slotFunctionName(slot)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, "  (void*)&%s, // %s\n", fnName, slot.Method.Name)
		}
		b.WriteString("};\n\n")
	}
	return b.String(), nil
}

func (g *generator) slotFunctionName(slot ir.VTableSlot) (string, error) {
	mi := g.methodByDecl[slot.Method]
	if mi == nil {
		return defaultObjectVirtual(slot.Method.Name), nil
	}
	name, err := g.methodName(mi)
	if err != nil {
		// A v-table slot's own name can fail to resolve for the same
		// reason its body might (an unresolvable parameter type); the
		// slot still needs a symbol, so it falls back the same way the
		// stub file and header do rather than aborting emission.
		return fmt.Sprintf("stub_unnamed_%08x", mi.Method.Row), nil
	}
	return name, nil
}

// defaultObjectVirtual names the runtime's built-in fallback for one of
// Object's three virtuals when no override reaches this slot.
func defaultObjectVirtual(name string) string {
	switch name {
	case "ToString":
		return "rtg_object_default_tostring"
	case "Equals":
		return "rtg_object_default_equals"
	case "GetHashCode":
		return "rtg_object_default_hashcode"
	default:
		return "rtg_object_default_virtual"
	}
}
