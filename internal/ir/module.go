// Package ir builds the typed intermediate representation the code
// generator renders to C++: type layouts, method bodies as basic blocks of
// typed instructions, v-tables, interface dispatch tables, generic
// specializations, and the string/blob pools. It runs as eight ordered
// passes over a shared Builder, grounded on tinyrange-rtg/std/compiler/
// ir.go's single Compiler struct threaded through one CompileModule entry
// point — generalized here from a small self-hosted Go subset to ECMA-335's
// considerably larger type and instruction vocabulary.
package ir

import (
	"github.com/cil2cpp/aotc/internal/assembly"
	"github.com/cil2cpp/aotc/internal/namemap"
)

// FieldLayout is one field's position within its declaring type's instance
// (or static) storage.
type FieldLayout struct {
	Field   *assembly.Field
	Type    *SigType
	Offset  int
	IsGCRef bool // true if Type denotes a reference-containing slot

	// BlobID is set by Pass 7 when Field is RVA-backed and its explicit
	// ClassLayout size could be derived; empty otherwise.
	BlobID string
}

// TypeLayout is Pass 1's output for one reachable type: size, alignment,
// field offsets, and the GC reference-containment bitmap.
type TypeLayout struct {
	Type       *assembly.Type
	Size       int
	Align      int
	Fields     []FieldLayout
	StaticSize int
	// RefOffsets lists every byte offset within an instance that holds a
	// GC-traceable reference, feeding TypeInfo's flag bitfield and future
	// GC header generation.
	RefOffsets []int
}

// ParamInfo is one lowered method parameter.
type ParamInfo struct {
	Name  string
	Type  *SigType
	ByRef bool
}

// MethodIR is the IR form of one reachable method: its lowered signature,
// and — when it has a body — the control-flow graph and instructions Pass
// 3/4 build. A method that never gets past Pass 2 (declared-only: abstract,
// internal call, P/Invoke) has nil Blocks and is rendered as a declaration
// only.
type MethodIR struct {
	Method     *assembly.Method
	Params     []ParamInfo
	Ret        *SigType
	RetByRef   bool
	IsStatic   bool
	HasThis    bool

	Blocks     []*BasicBlock
	Locals     []*SigType // LocalVarSig slots, in slot order; nil if the body declares none
	VTableSlot int // -1 if not virtual

	// StubReason is set once any pass fails to fully lower this method;
	// the method generates a stub body instead of a real one, but the
	// build continues.
	StubReason *StubReason
}

// ExceptionRegion describes a try/catch/finally extent. No pass populates
// it: BasicBlock.Region is always nil.
type ExceptionRegion struct {
	TryStart, TryEnd         int
	HandlerStart, HandlerEnd int
	Kind                     string // "catch", "finally", "fault", "filter"
	CatchType                *assembly.Type
}

// Instruction is one lowered IL instruction carrying its abstract-stack
// result type, so the code generator never has to re-derive it.
type Instruction struct {
	Offset   int
	Op       int // il.Opcode value, stored as a plain int
	Operand  interface{}
	Result   *SigType
	Branches []int // bytecode offsets of the branch targets (each a BasicBlock.Start)
}

// BasicBlock is a maximal straight-line run of instructions ending in
// exactly one terminator (spec.md Pass 3 invariant).
type BasicBlock struct {
	Start, End int // original bytecode offsets, [Start, End)
	Instrs     []*Instruction
	Succs      []*BasicBlock
	Region     *ExceptionRegion
}

// VTableSlot assigns one virtual dispatch slot to the method that currently
// occupies it (the most-derived override reachable for that type).
type VTableSlot struct {
	Index  int
	Method *assembly.Method
}

// VTable is one type's virtual dispatch table (Pass 5).
type VTable struct {
	Type  *assembly.Type
	Slots []VTableSlot
}

// InterfaceTable is one (implementing type, interface) pair's per-interface
// dispatch table (Pass 5).
type InterfaceTable struct {
	Type      *assembly.Type
	Interface *assembly.Type
	Slots     []VTableSlot
}

// Specialization records one distinct generic instantiation found by Pass 6.
// Its Layout is the open generic definition's layout with no type-argument
// substitution, and codegen emits no TypeInfo, v-table or body for it.
type Specialization struct {
	Name        string // mangled name, the specialization cache key
	GenericType *assembly.Type
	TypeArgs    []*SigType
	Layout      *TypeLayout
}

// StringLiteral is one pooled string constant (Pass 7).
type StringLiteral struct {
	ID    string
	Value []uint16 // UTF-16 code units, matching the #US heap encoding
}

// ArrayInitBlob is one pooled RVA-backed array initializer (Pass 7).
type ArrayInitBlob struct {
	ID   string
	Data []byte
}

// StubReason classifies why a method could not be fully lowered
// (spec.md §4.7/§4.8). Kind is one of the fixed reason strings the
// StubAnalyzer groups by.
type StubReason struct {
	Kind   string
	Method *assembly.Method
	Detail string
}

// Module is the finished IR: everything the code generator needs, plus
// every stub recorded along the way.
type Module struct {
	Types           []*TypeLayout
	Methods         []*MethodIR
	VTables         []*VTable
	InterfaceTables []*InterfaceTable
	Specializations []*Specialization
	Strings         []*StringLiteral
	Blobs           []*ArrayInitBlob
	Stubs           []*StubReason

	// Names is the single NameMapper instance used throughout the build —
	// Pass 6 interned every generic instantiation's mangled name into it,
	// and internal/codegen reuses it for every other reachable type and
	// method so a plain type's identifier can never collide with a
	// specialization's (spec.md §4.4's injectivity invariant holds over
	// the whole reachable set, not just the generic subset).
	Names *namemap.Mapper
}
