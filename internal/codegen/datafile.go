package codegen

import (
	"fmt"
	"strings"

	"github.com/cil2cpp/aotc/internal/assembly"
	"github.com/cil2cpp/aotc/internal/ir"
)

// emitDataFile renders the module's single data source file (spec.md
// §4.6.7): every TypeInfo, v-table and interface v-table, zero-initialized
// static field, the string-literal pool, every array-init blob, and one
// ensure_cctor shim per type with a static constructor. Static fields are
// not registered as GC roots here, and no P/Invoke trampolines are emitted.
func (g *generator) emitDataFile(types []*ir.TypeLayout) (Artifact, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "#include \"%s.h\"\n\n", g.opts.ModuleName)

	vtables, err := g.emitVTables()
	if err != nil {
		return Artifact{}, err
	}
	b.WriteString("// v-tables\n")
	b.WriteString(vtables)

	vtableOf := make(map[*assembly.Type]string, len(g.mod.VTables))
	for _, vt := range g.mod.VTables {
		ident, err := g.mod.Names.TypeName(vt.Type.FullName)
		if err != nil {
			return Artifact{}, err
		}
		vtableOf[vt.Type] = ident + "_vtable"
	}

	b.WriteString("\n// TypeInfo table\n")
	for _, t := range types {
		if err := g.emitTypeInfo(&b, t, vtableOf[t.Type]); err != nil {
			return Artifact{}, err
		}
	}

	b.WriteString("\n// static fields\n")
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
			fmt.Fprintf(&b, "%s %s_%s_static = %s;\n", ftype, typeIdent, fl.Field.Name, zeroValue(ftype))
		}
	}

	b.WriteString("\n// string literal pool\n")
	for _, s := range sortedStrings(g.mod.Strings) {
		fmt.Fprintf(&b, "static const char16_t %s_chars[] = %s;\n", s.ID, utf16Literal(s.Value))
		fmt.Fprintf(&b, "rtg_String* %s = nullptr; // initialized by %s_init_strings()\n", s.ID, g.opts.ModuleName)
	}

	b.WriteString("\n// array-init blobs\n")
	for _, blob := range sortedBlobs(g.mod.Blobs) {
		fmt.Fprintf(&b, "const uint8_t %s[] = %s;\n", blob.ID, byteArrayLiteral(blob.Data))
	}

	b.WriteString("\n// static-constructor dispatch shims\n")
	for _, t := range types {
		cctor := staticConstructorOf(t.Type)
		if cctor == nil {
			continue
		}
		mi := g.methodByDecl[cctor]
		if mi == nil {
			continue
		}
		fnName, err := g.methodName(mi)
		if err != nil {
			return Artifact{}, err
		}
		typeIdent, err := g.mod.Names.TypeName(t.Type.FullName)
		if err != nil {
			return Artifact{}, err
		}
		fmt.Fprintf(&b, "static bool %s_cctor_ran = false;\n", typeIdent)
		fmt.Fprintf(&b, "void ensure_cctor_%s() {\n  if (%s_cctor_ran) return;\n  %s_cctor_ran = true;\n  %s(nullptr);\n}\n",
			typeIdent, typeIdent, typeIdent, fnName)
	}

	b.WriteString("\n// string pool initializer\n")
	fmt.Fprintf(&b, "void %s_init_strings() {\n", g.opts.ModuleName)
	for _, s := range sortedStrings(g.mod.Strings) {
		fmt.Fprintf(&b, "  %s = rtg_makestring(%s_chars, %d);\n", s.ID, s.ID, len(s.Value))
	}
	b.WriteString("}\n")

	return Artifact{Name: g.opts.ModuleName + "_data.cpp", Content: b.String()}, nil
}

func (g *generator) emitTypeInfo(b *strings.Builder, t *ir.TypeLayout, vtableIdent string) error {
	ident, err := g.mod.Names.TypeName(t.Type.FullName)
	if err != nil {
		return err
	}
	vtableRef := "nullptr"
	if vtableIdent != "" {
		vtableRef = vtableIdent
	}
	fmt.Fprintf(b, "rtg_TypeInfo %s_TypeInfo = { .name = %q, .instance_size = %d, .ref_offset_count = %d, .vtable = (void**)%s };\n",
		ident, t.Type.FullName, t.Size, len(t.RefOffsets), vtableRef)
	return nil
}

func staticConstructorOf(t *assembly.Type) *assembly.Method {
	for _, m := range t.Methods {
		if m.Name == ".cctor" {
			return m
		}
	}
	return nil
}

func zeroValue(cppType string) string {
	if strings.HasSuffix(cppType, "*") {
		return "nullptr"
	}
	switch cppType {
	case "float", "double":
		return "0.0"
	case "rtg_bool":
		return "false"
	default:
		return "0"
	}
}

func utf16Literal(units []uint16) string {
	var b strings.Builder
	b.WriteString("{")
	for i, u := range units {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "0x%04X", u)
	}
	b.WriteString("}")
	return b.String()
}

func byteArrayLiteral(data []byte) string {
	var b strings.Builder
	b.WriteString("{")
	for i, v := range data {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "0x%02X", v)
	}
	b.WriteString("}")
	return b.String()
}
