package codegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cil2cpp/aotc/internal/assembly"
	"github.com/cil2cpp/aotc/internal/ir"
)

// emitHeader renders the module's single header file (spec.md §4.6.1):
// forward declarations for every reachable type, full struct bodies for
// every lowerable value type/enum/class, type aliases for runtime-
// provided types, and extern declarations for every TypeInfo, string
// literal symbol, array-init blob, static field, and
// method implemented elsewhere.
func (g *generator) emitHeader(types []*ir.TypeLayout) (Artifact, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "#pragma once\n#include \"rtg_runtime.h\"\n\n")

	// Forward declarations come first so cyclic field references (A holds
	// a B, B holds an A) resolve regardless of struct emission order
	// (spec.md §9 "Cyclic type graphs").
	fmt.Fprintf(&b, "// forward declarations\n")
	for _, t := range types {
		ident, err := g.mod.Names.TypeName(t.Type.FullName)
		if err != nil {
			return Artifact{}, err
		}
		if g.runtime.IsRuntimeProvided(t.Type.FullName) {
			continue
		}
		fmt.Fprintf(&b, "struct %s;\n", ident)
	}
	b.WriteString("\n// runtime-provided type aliases\n")
	for _, name := range g.runtime.Names() {
		ident, err := g.mod.Names.TypeName(name)
		if err != nil {
			return Artifact{}, err
		}
		fmt.Fprintf(&b, "using %s = rtg_%s;\n", ident, ident)
	}

	b.WriteString("\n// struct definitions\n")
	for _, t := range types {
		if g.runtime.IsRuntimeProvided(t.Type.FullName) {
			continue
		}
		def, err := g.emitStructBody(t)
		if err != nil {
			return Artifact{}, err
		}
		b.WriteString(def)
	}

	b.WriteString("\n// TypeInfo externs\n")
	for _, t := range types {
		ident, err := g.mod.Names.TypeName(t.Type.FullName)
		if err != nil {
			return Artifact{}, err
		}
		fmt.Fprintf(&b, "extern rtg_TypeInfo %s_TypeInfo;\n", ident)
	}

	b.WriteString("\n// string literal pool externs\n")
	for _, s := range sortedStrings(g.mod.Strings) {
		fmt.Fprintf(&b, "extern rtg_String* %s;\n", s.ID)
	}
	b.WriteString("\n// array-init blob externs\n")
	for _, blob := range sortedBlobs(g.mod.Blobs) {
		fmt.Fprintf(&b, "extern const uint8_t %s[];\n", blob.ID)
	}

	// Every static field gets an extern declaration here, not just the
	// GC-rooted ones — Ldsfld/Stsfld reference the storage symbol by name
	// from whichever method partition uses it, which may not be the
	// partition datafile.go's definition lives alongside.
	b.WriteString("\n// static field storage\n")
	for _, t := range types {
		typeIdent, err := g.mod.Names.TypeName(t.Type.FullName)
		if err != nil {
			return Artifact{}, err
		}
		for _, fl := range t.Fields {
			if !fl.Field.IsStatic {
				continue
			}
			ftype, err := g.typeName(fl.Type)
			if err != nil {
				return Artifact{}, err
			}
			fmt.Fprintf(&b, "extern %s %s_%s_static;\n", ftype, typeIdent, fl.Field.Name)
		}
	}

	b.WriteString("\n// method declarations\n")
	for _, mi := range sortedMethodIRs(g.mod.Methods) {
		sig, err := g.methodSignature(mi)
		if err != nil {
			// A method whose own signature can't be rendered is exactly
			// the unknown-type gate's job to catch during emission; the
			// header still owes it exactly one declaration, typed
			// variadic so callers never see a missing symbol.
			name, nameErr := g.methodName(mi)
			if nameErr != nil || name == "" {
				name = fmt.Sprintf("stub_unnamed_%08x", mi.Method.Row)
			}
			fmt.Fprintf(&b, "void %s(...);\n", name)
			continue
		}
		fmt.Fprintf(&b, "%s;\n", sig)
	}

	return Artifact{Name: g.opts.ModuleName + ".h", Content: b.String()}, nil
}

// emitStructBody renders one type's full struct definition (spec.md
// §4.6.2): class structs begin with a fixed two-field object header,
// value types omit it entirely, and instance fields follow in Pass-1
// offset order.
func (g *generator) emitStructBody(t *ir.TypeLayout) (string, error) {
	ident, err := g.mod.Names.TypeName(t.Type.FullName)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "struct %s {\n", ident)
	if t.Type.Kind == assembly.KindClass {
		b.WriteString("  rtg_TypeInfo* __typeinfo;\n  rtg_SyncBlock __syncblock;\n")
	}
	sortedFields := append([]ir.FieldLayout(nil), t.Fields...)
	sort.Slice(sortedFields, func(i, j int) bool { return sortedFields[i].Offset < sortedFields[j].Offset })
	for _, fl := range sortedFields {
		if fl.Field.IsStatic {
			continue
		}
		ftype, err := g.typeName(fl.Type)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "  %s %s; // offset %d\n", ftype, fl.Field.Name, fl.Offset)
	}
	b.WriteString("};\n\n")
	return b.String(), nil
}
