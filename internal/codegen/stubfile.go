package codegen

import (
	"fmt"
	"strings"

	"github.com/cil2cpp/aotc/internal/ir"
)

// emitStubFile renders the single source file holding every stub body
// (spec.md §4.6.8): one function per declared-but-not-lowered method,
// each trapping with a diagnostic naming the method and its classified
// root cause.
func (g *generator) emitStubFile(decisions map[*ir.MethodIR]gateDecision) Artifact {
	var b strings.Builder
	fmt.Fprintf(&b, "#include \"%s.h\"\n\n", g.opts.ModuleName)

	for _, mi := range sortedMethodIRs(g.mod.Methods) {
		d := decisions[mi]
		if d.render {
			continue
		}
		sig, err := g.methodSignature(mi)
		if err != nil {
			// The signature itself is part of why this method is
			// stubbed (an unresolvable parameter type); fall back to a
			// raw untyped trap so the build still produces one
			// definition per method.
			name, _ := g.methodName(mi)
			if name == "" {
				name = fmt.Sprintf("stub_unnamed_%08x", mi.Method.Row)
			}
			fmt.Fprintf(&b, "void %s(...) {\n  rtg_trap(\"%s: %s\");\n}\n\n", name, d.kind, escapeCString(d.detail))
			continue
		}
		retType, _ := g.typeName(mi.Ret)
		fmt.Fprintf(&b, "%s {\n", sig)
		fmt.Fprintf(&b, "  rtg_trap(\"%s: %s (%s.%s)\");\n", d.kind, escapeCString(d.detail), mi.Method.DeclaringType.FullName, mi.Method.Name)
		if retType != "void" {
			fmt.Fprintf(&b, "  return %s;\n", zeroValue(retType))
		}
		b.WriteString("}\n\n")
	}
	return Artifact{Name: g.opts.ModuleName + "_stubs.cpp", Content: b.String()}
}

func escapeCString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
