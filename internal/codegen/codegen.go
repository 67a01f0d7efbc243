// Package codegen renders a finished internal/ir.Module into the text
// artifacts a downstream C++ toolchain builds (spec.md §4.6). It is split
// one file per spec.md §4.6.x subsection, grounded on
// tinyrange-rtg/std/compiler/backend.go's multi-backend CodeGen struct and
// backend_ir.go's textual instruction renderer — generalized from "one
// flat ELF/text backend selected by a global flag" to "partitioned C++
// source driven by a finished IR module."
package codegen

import (
	"fmt"
	"sort"

	"github.com/cil2cpp/aotc/internal/assembly"
	"github.com/cil2cpp/aotc/internal/icall"
	"github.com/cil2cpp/aotc/internal/ir"
	"github.com/cil2cpp/aotc/internal/runtimetypes"
)

// Options configures one emission run.
type Options struct {
	ModuleName string
	Executable bool

	// EntryMethod is the mangled identifier of the module's entry method,
	// required when Executable is true.
	EntryMethod string

	// PartitionThreshold is the cumulative IR-instruction count that
	// closes one method partition and opens the next (spec.md §4.6.4).
	PartitionThreshold int

	// PInvokeLibraries lists user P/Invoke module names to link; standard-
	// library-internal P/Invoke modules are never added to this list by
	// the pipeline (spec.md §4.6.9).
	PInvokeLibraries []string
}

// DefaultPartitionThreshold matches the point at which a translation
// unit's shared-header parse cost stops dominating its own compile time
// on typical method sizes.
const DefaultPartitionThreshold = 4000

// Artifact is one named text output.
type Artifact struct {
	Name    string
	Content string
}

// Result collects every artifact one Generate call produces, plus the
// stub/analysis reports internal/stubs consumes.
type Result struct {
	Header           Artifact
	Data             Artifact
	MethodPartitions []Artifact
	StubFile         Artifact
	Main             *Artifact
	Manifest         Artifact
	Stubs            []StubRecord
}

// StubRecord is one gated-off method's classified root cause, the unit
// internal/stubs groups, cascades, and ratchets against (spec.md §4.7/§4.8).
type StubRecord struct {
	Method *ir.MethodIR
	Kind   string
	Detail string
}

// generator carries the shared, read-only state every emission stage
// needs: the module, the naming state Pass 6 built, and the two static
// inputs (spec.md §6) that decide gate 1/4 outcomes.
type generator struct {
	set     *assembly.AssemblySet
	mod     *ir.Module
	icalls  *icall.Registry
	runtime *runtimetypes.List
	opts    Options

	methodByDecl map[*assembly.Method]*ir.MethodIR
}

// Generate runs every §4.6.x stage over mod and returns the finished
// artifact set. It never fails on a per-method problem — that is exactly
// what the stub gates exist to absorb (spec.md §4.6.6) — only on a
// structural naming violation (an illegal or colliding identifier
// surviving to emission, which would itself be a NameMapper bug).
func Generate(set *assembly.AssemblySet, mod *ir.Module, icalls *icall.Registry, runtime *runtimetypes.List, opts Options) (*Result, error) {
	if opts.PartitionThreshold <= 0 {
		opts.PartitionThreshold = DefaultPartitionThreshold
	}
	g := &generator{set: set, mod: mod, icalls: icalls, runtime: runtime, opts: opts,
		methodByDecl: make(map[*assembly.Method]*ir.MethodIR, len(mod.Methods))}
	for _, mi := range mod.Methods {
		g.methodByDecl[mi.Method] = mi
	}

	sortedTypes := append([]*ir.TypeLayout(nil), mod.Types...)
	sort.Slice(sortedTypes, func(i, j int) bool {
		return typeOrderKey(sortedTypes[i]) < typeOrderKey(sortedTypes[j])
	})

	decisions, err := g.gateAll(mod.Methods)
	if err != nil {
		return nil, err
	}

	header, err := g.emitHeader(sortedTypes)
	if err != nil {
		return nil, err
	}
	data, err := g.emitDataFile(sortedTypes)
	if err != nil {
		return nil, err
	}
	partitions, err := g.emitMethodPartitions(decisions)
	if err != nil {
		return nil, err
	}
	stubFile := g.emitStubFile(decisions)

	var main *Artifact
	if opts.Executable {
		m, err := g.emitMain()
		if err != nil {
			return nil, err
		}
		main = m
	}
	manifest := g.emitManifest(len(partitions), main != nil)

	var stubs []StubRecord
	for _, mi := range sortedMethodIRs(mod.Methods) {
		if d := decisions[mi]; !d.render {
			stubs = append(stubs, StubRecord{Method: mi, Kind: d.kind, Detail: d.detail})
		}
	}

	return &Result{
		Header:           header,
		Data:             data,
		MethodPartitions: partitions,
		StubFile:         stubFile,
		Main:             main,
		Manifest:         manifest,
		Stubs:            stubs,
	}, nil
}

func typeOrderKey(t *ir.TypeLayout) string {
	return fmt.Sprintf("%s\x00%08d", t.Type.Assembly.CanonicalName, t.Type.Row)
}

func methodOrderKey(m *ir.MethodIR) string {
	return fmt.Sprintf("%s\x00%08d\x00%08d", m.Method.DeclaringType.Assembly.CanonicalName, m.Method.DeclaringType.Row, m.Method.Row)
}

func sortedMethodIRs(methods []*ir.MethodIR) []*ir.MethodIR {
	out := append([]*ir.MethodIR(nil), methods...)
	sort.Slice(out, func(i, j int) bool { return methodOrderKey(out[i]) < methodOrderKey(out[j]) })
	return out
}

func sortedStrings(lits []*ir.StringLiteral) []*ir.StringLiteral {
	out := append([]*ir.StringLiteral(nil), lits...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortedBlobs(blobs []*ir.ArrayInitBlob) []*ir.ArrayInitBlob {
	out := append([]*ir.ArrayInitBlob(nil), blobs...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
