package codegen

import (
	"fmt"
	"strings"
)

// emitMain renders the single main source file for executable modules
// (spec.md §4.6.9): initializes the runtime, registers command-line
// arguments, runs the string-literal initializer, invokes the declared
// entry method, then shuts the runtime down.
func (g *generator) emitMain() (*Artifact, error) {
	var b strings.Builder
	b.WriteString("#include \"rtg_runtime.h\"\n")
	fmt.Fprintf(&b, "#include \"%s.h\"\n\n", g.opts.ModuleName)
	fmt.Fprintf(&b, "void %s_init_strings();\n\n", g.opts.ModuleName)
	b.WriteString("int main(int argc, char** argv) {\n")
	b.WriteString("  rtg_runtime_init();\n")
	b.WriteString("  rtg_register_args(argc, argv);\n")
	fmt.Fprintf(&b, "  %s_init_strings();\n", g.opts.ModuleName)
	fmt.Fprintf(&b, "  int rc = (int)%s(nullptr);\n", g.opts.EntryMethod)
	b.WriteString("  rtg_runtime_shutdown();\n")
	b.WriteString("  return rc;\n")
	b.WriteString("}\n")
	return &Artifact{Name: g.opts.ModuleName + "_main.cpp", Content: b.String()}, nil
}

// emitManifest renders the build-system manifest (spec.md §4.6.9): every
// source file, executable-or-static-library target kind, the runtime
// link, a single cxx_std_17 compile feature (no per-configuration
// compile options), and any user P/Invoke
// libraries (standard-library-internal P/Invoke modules never reach
// opts.PInvokeLibraries — the pipeline filters those out before calling
// Generate).
func (g *generator) emitManifest(partitionCount int, hasMain bool) Artifact {
	var b strings.Builder
	fmt.Fprintf(&b, "# generated build manifest for %s\n", g.opts.ModuleName)
	fmt.Fprintf(&b, "cmake_minimum_required(VERSION 3.16)\n")
	fmt.Fprintf(&b, "project(%s CXX)\n\n", g.opts.ModuleName)

	kind := "add_library"
	kindArgs := "STATIC"
	if g.opts.Executable {
		kind = "add_executable"
		kindArgs = ""
	}

	var sources []string
	sources = append(sources, g.opts.ModuleName+"_data.cpp", g.opts.ModuleName+"_stubs.cpp")
	for i := 0; i < partitionCount; i++ {
		sources = append(sources, fmt.Sprintf("%s_part%d.cpp", g.opts.ModuleName, i))
	}
	if hasMain {
		sources = append(sources, g.opts.ModuleName+"_main.cpp")
	}

	fmt.Fprintf(&b, "%s(%s %s\n  %s\n)\n\n", kind, g.opts.ModuleName, kindArgs, strings.Join(sources, "\n  "))
	fmt.Fprintf(&b, "target_compile_features(%s PUBLIC cxx_std_17)\n", g.opts.ModuleName)
	fmt.Fprintf(&b, "target_link_libraries(%s PUBLIC rtg_runtime)\n", g.opts.ModuleName)
	for _, lib := range g.opts.PInvokeLibraries {
		fmt.Fprintf(&b, "target_link_libraries(%s PUBLIC %s)\n", g.opts.ModuleName, lib)
	}

	return Artifact{Name: "CMakeLists.txt", Content: b.String()}
}
